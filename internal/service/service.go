// Package service wires sources, the cache and the WBR core together.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/open-wbr/wbrdash/internal/cache"
	"github.com/open-wbr/wbrdash/internal/config"
	"github.com/open-wbr/wbrdash/internal/model"
	"github.com/open-wbr/wbrdash/internal/source"
	"github.com/open-wbr/wbrdash/internal/wbr"
)

// ErrNoData signals that the source holds no rows for the metric.
var ErrNoData = errors.New("data unavailable")

// fetchPadding extends the fetch window before January 1 of the prior
// year so the oldest weekly bucket's prior-year week is fully covered.
const fetchPadding = 7 * 24 * time.Hour

// Service resolves metrics, fetches observations and computes results,
// memoizing them through the TTL cache.
type Service struct {
	src   source.Source
	cfg   config.FileConfig
	dash  model.DashboardConfig
	cache *cache.ResultCache
}

// Request identifies one report to compute. Zero fields fall back to the
// configured dashboard defaults; a zero ReferenceDate means "latest date
// present in the data".
type Request struct {
	Metric        string
	Group         string
	ReferenceDate time.Time
	WeekWindow    int
	MonthWindow   int
}

// Report bundles the computed result with the metric it describes.
type Report struct {
	Metric model.Metric
	Params model.Params
	Result wbr.Result
}

// New builds a service around an open source and a loaded config.
func New(src source.Source, cfg config.FileConfig) *Service {
	dash := cfg.DashboardSettings()
	return &Service{
		src:   src,
		cfg:   cfg,
		dash:  dash,
		cache: cache.New(128, dash.CacheTTL),
	}
}

// MetricNames lists the configured metrics in file order.
func (s *Service) MetricNames() []string {
	return s.cfg.MetricNames()
}

// Metric resolves a metric by name, defaulting to the first configured one.
func (s *Service) Metric(name string) (model.Metric, error) {
	return s.cfg.Metric(name)
}

// Groups lists the distinct group values available for a metric.
func (s *Service) Groups(ctx context.Context, metricName string) ([]string, error) {
	m, err := s.cfg.Metric(metricName)
	if err != nil {
		return nil, err
	}
	if m.Columns.Group == "" {
		return nil, nil
	}
	return s.src.Groups(ctx, m.Table, m.Columns)
}

// DateRange reports the span of dates available for a metric.
func (s *Service) DateRange(ctx context.Context, metricName string) (time.Time, time.Time, error) {
	m, err := s.cfg.Metric(metricName)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return s.src.DateRange(ctx, m.Table, m.Columns)
}

// Invalidate drops any cached result for the request.
func (s *Service) Invalidate(req Request) {
	m, err := s.cfg.Metric(req.Metric)
	if err != nil {
		return
	}
	p, err := s.params(context.Background(), m, req)
	if err != nil {
		return
	}
	s.cache.Invalidate(p)
}

// Run computes the report for the request, serving repeats from the cache.
func (s *Service) Run(ctx context.Context, req Request) (Report, error) {
	m, err := s.cfg.Metric(req.Metric)
	if err != nil {
		return Report{}, err
	}
	if err := source.ValidateMapping(m.Columns); err != nil {
		return Report{}, fmt.Errorf("metric %q: %w", m.Name, err)
	}
	p, err := s.params(ctx, m, req)
	if err != nil {
		return Report{}, err
	}

	res, err := s.cache.Get(ctx, p, func(ctx context.Context) (wbr.Result, error) {
		return s.compute(ctx, m, p)
	})
	if err != nil {
		return Report{}, err
	}
	return Report{Metric: m, Params: p, Result: res}, nil
}

// params normalizes a request into a fully-specified cache key.
func (s *Service) params(ctx context.Context, m model.Metric, req Request) (model.Params, error) {
	ref := req.ReferenceDate
	if ref.IsZero() {
		_, maxDate, err := s.src.DateRange(ctx, m.Table, m.Columns)
		if err != nil {
			return model.Params{}, fmt.Errorf("metric %q: %w", m.Name, err)
		}
		if maxDate.IsZero() {
			return model.Params{}, fmt.Errorf("metric %q: %w", m.Name, ErrNoData)
		}
		ref = maxDate
	}
	weekWindow := req.WeekWindow
	if weekWindow == 0 {
		weekWindow = s.dash.WeekWindow
	}
	monthWindow := req.MonthWindow
	if monthWindow == 0 {
		monthWindow = s.dash.MonthWindow
	}
	return model.Params{
		SourceID:      s.src.ID(),
		Metric:        m.Name,
		Group:         req.Group,
		ReferenceDate: ref.UTC().Truncate(24 * time.Hour),
		WeekWindow:    weekWindow,
		MonthWindow:   monthWindow,
	}, nil
}

// fetchStart returns the earliest date any bucket or to-date window can
// reach: January 1 of the prior year for YTD, the prior-year match of the
// oldest weekly bucket, and the prior-year month of the oldest monthly
// bucket, whichever is earliest.
func fetchStart(p model.Params) time.Time {
	ref := p.ReferenceDate
	start := time.Date(ref.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	if t := ref.AddDate(-1, 0, -7*p.WeekWindow); t.Before(start) {
		start = t
	}
	if t := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(p.MonthWindow + 11), 0); t.Before(start) {
		start = t
	}
	return start.Add(-fetchPadding)
}

func (s *Service) compute(ctx context.Context, m model.Metric, p model.Params) (wbr.Result, error) {
	start := fetchStart(p)
	obs, err := s.src.Observations(ctx, model.Query{
		Table:   m.Table,
		Columns: m.Columns,
		Start:   start,
		End:     p.ReferenceDate,
		Group:   p.Group,
	})
	if err != nil {
		return wbr.Result{}, fmt.Errorf("metric %q: %w", m.Name, err)
	}
	if len(obs) == 0 {
		return wbr.Result{}, fmt.Errorf("metric %q: %w", m.Name, ErrNoData)
	}
	res, err := wbr.Compute(obs, p.ReferenceDate, wbr.Options{
		WeekWindow:  p.WeekWindow,
		MonthWindow: p.MonthWindow,
	})
	if err != nil {
		return wbr.Result{}, fmt.Errorf("metric %q: %w", m.Name, err)
	}
	return res, nil
}
