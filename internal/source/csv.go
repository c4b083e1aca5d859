package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

// CSV is a flat-file source for ad-hoc analysis. The query's Table names
// a .csv file inside the configured directory; the first record must be a
// header row containing the mapped column names.
type CSV struct {
	dir string
}

// OpenCSV creates a CSV source rooted at dir.
func OpenCSV(dir string) (*CSV, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("csv dir: %s is not a directory", dir)
	}
	return &CSV{dir: dir}, nil
}

// ID implements Source.
func (s *CSV) ID() string {
	return "csv:" + s.dir
}

// Close implements Source.
func (s *CSV) Close() error {
	return nil
}

// load reads and normalizes every row of one file. Bad cells are reported
// with their record number rather than dropped silently.
func (s *CSV) load(table string, cols model.ColumnMapping) ([]model.Observation, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if err := ValidateMapping(cols); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, table+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort file close.
			_ = cerr
		}
	}()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	dateIdx, valueIdx, groupIdx := -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case cols.Date:
			dateIdx = i
		case cols.Value:
			valueIdx = i
		case cols.Group:
			if cols.Group != "" {
				groupIdx = i
			}
		}
	}
	if dateIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("%s: header is missing %q or %q", path, cols.Date, cols.Value)
	}

	var out []model.Observation
	for recNum := 2; ; recNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", path, recNum, err)
		}
		date, err := parseDateCell(record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", path, recNum, err)
		}
		value, err := parseValueCell(record[valueIdx])
		if err != nil {
			return nil, fmt.Errorf("%s record %d: %w", path, recNum, err)
		}
		obs := model.Observation{Date: date, Value: value}
		if groupIdx >= 0 && groupIdx < len(record) {
			obs.Group = strings.TrimSpace(record[groupIdx])
		}
		out = append(out, obs)
	}
	return out, nil
}

// Observations implements Source.
func (s *CSV) Observations(_ context.Context, q model.Query) ([]model.Observation, error) {
	rows, err := s.load(q.Table, q.Columns)
	if err != nil {
		return nil, err
	}
	var out []model.Observation
	for _, o := range rows {
		if o.Date.Before(q.Start) || o.Date.After(q.End) {
			continue
		}
		if q.Group != "" && o.Group != q.Group {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// DateRange implements Source.
func (s *CSV) DateRange(_ context.Context, table string, cols model.ColumnMapping) (time.Time, time.Time, error) {
	rows, err := s.load(table, cols)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(rows) == 0 {
		// Empty file: zero times, not an error.
		return time.Time{}, time.Time{}, nil
	}
	minDate, maxDate := rows[0].Date, rows[0].Date
	for _, o := range rows[1:] {
		if o.Date.Before(minDate) {
			minDate = o.Date
		}
		if o.Date.After(maxDate) {
			maxDate = o.Date
		}
	}
	return minDate, maxDate, nil
}

// Groups implements Source.
func (s *CSV) Groups(_ context.Context, table string, cols model.ColumnMapping) ([]string, error) {
	if cols.Group == "" {
		return nil, nil
	}
	rows, err := s.load(table, cols)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var out []string
	for _, o := range rows {
		if o.Group == "" {
			continue
		}
		if _, ok := seen[o.Group]; ok {
			continue
		}
		seen[o.Group] = struct{}{}
		out = append(out, o.Group)
	}
	sort.Strings(out)
	return out, nil
}
