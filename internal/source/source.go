// Package source provides warehouse access and row normalization.
package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

// Source is a read-only warehouse client. Implementations fetch raw rows;
// normalization into model.Observation happens before rows reach the core
// pipeline.
type Source interface {
	// ID identifies the source for cache keying (e.g. "sqlite:/path/db").
	ID() string
	// Observations returns normalized rows for the query window.
	Observations(ctx context.Context, q model.Query) ([]model.Observation, error)
	// DateRange returns the minimum and maximum dates present in a table,
	// zero times when the table is empty.
	DateRange(ctx context.Context, table string, cols model.ColumnMapping) (time.Time, time.Time, error)
	// Groups lists the distinct group values of a table, sorted.
	Groups(ctx context.Context, table string, cols model.ColumnMapping) ([]string, error)
	Close() error
}

// Writer is the optional write side of a source, used for seeding demo
// data. Only local backends implement it.
type Writer interface {
	EnsureTable(ctx context.Context, table string, cols model.ColumnMapping) error
	InsertObservations(ctx context.Context, table string, cols model.ColumnMapping, rows []model.Observation) error
}

// ValidateMapping checks a column mapping once, at the boundary. The core
// never sees raw column names.
func ValidateMapping(cols model.ColumnMapping) error {
	if cols.Date == "" {
		return fmt.Errorf("column mapping: date column is required")
	}
	if cols.Value == "" {
		return fmt.Errorf("column mapping: value column is required")
	}
	for _, name := range []string{cols.Date, cols.Value, cols.Group} {
		if name == "" {
			continue
		}
		if !isIdentifier(name) {
			return fmt.Errorf("column mapping: invalid column name %q", name)
		}
	}
	return nil
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return false
	}
	return s != ""
}

// dateLayouts are the formats accepted for textual date cells, tried in
// order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// parseDateCell parses a textual date from a warehouse row.
func parseDateCell(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseValueCell parses a numeric metric cell.
func parseValueCell(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable value %q", s)
	}
	return v, nil
}
