package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/open-wbr/wbrdash/internal/config"
	"github.com/open-wbr/wbrdash/internal/model"
	"github.com/open-wbr/wbrdash/internal/source"
)

func strPtr(s string) *string { return &s }

func testConfig() config.FileConfig {
	return config.FileConfig{
		Source: config.SourceConfig{Driver: strPtr("sqlite")},
		Metrics: []config.MetricConfig{
			{
				Name:        "visitors",
				Title:       "Visitors",
				Table:       "foot_traffic",
				DateColumn:  "obs_date",
				ValueColumn: "visitors",
				GroupColumn: "site",
			},
			{
				Name:        "broken",
				Table:       "foot_traffic",
				ValueColumn: "visitors",
			},
		},
	}
}

func seedSource(t *testing.T, from, to time.Time) *source.SQLite {
	t.Helper()
	src, err := source.OpenSQLite(filepath.Join(t.TempDir(), "wbr.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { src.Close() })

	cols := model.ColumnMapping{Date: "obs_date", Value: "visitors", Group: "site"}
	ctx := context.Background()
	if err := src.EnsureTable(ctx, "foot_traffic", cols); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	rows := make([]model.Observation, 0, 1024)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		rows = append(rows,
			model.Observation{Date: d, Value: 10, Group: "north"},
			model.Observation{Date: d, Value: 5, Group: "south"},
		)
	}
	if err := src.InsertObservations(ctx, "foot_traffic", cols, rows); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return src
}

func TestRunComputesReport(t *testing.T) {
	from := time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC)
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := New(seedSource(t, from, ref), testConfig())

	rep, err := svc.Run(context.Background(), Request{Metric: "visitors", ReferenceDate: ref})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Metric.Title != "Visitors" {
		t.Fatalf("metric: %+v", rep.Metric)
	}
	if len(rep.Result.Weeks) != 13 || len(rep.Result.Months) != 12 {
		t.Fatalf("windows: %d weeks %d months", len(rep.Result.Weeks), len(rep.Result.Months))
	}
	// 15 per day across both sites, 7 days per week.
	if w := rep.Result.Weeks[0]; !w.CY.Valid || w.CY.Float64 != 105 {
		t.Fatalf("week 0 total: %+v", w.CY)
	}
	if w := rep.Result.Weeks[0]; !w.PY.Valid || w.PY.Float64 != 105 {
		t.Fatalf("week 0 prior year total: %+v", w.PY)
	}
	// Oldest monthly bucket is Jul 2023; its prior year Jul 2022 is seeded.
	if m := rep.Result.Months[11]; !m.PY.Valid {
		t.Fatalf("oldest month prior year missing: %+v", m)
	}
	if k := rep.Result.KPIs; !k.YTDYoYPct.Valid {
		t.Fatalf("ytd yoy missing: %+v", k)
	}
}

func TestRunGroupFilter(t *testing.T) {
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := New(seedSource(t, from, ref), testConfig())

	rep, err := svc.Run(context.Background(), Request{Metric: "visitors", Group: "south", ReferenceDate: ref})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if w := rep.Result.Weeks[0]; !w.CY.Valid || w.CY.Float64 != 35 {
		t.Fatalf("filtered week 0 total: %+v", w.CY)
	}
}

func TestRunDefaultsReferenceToLatestDate(t *testing.T) {
	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := New(seedSource(t, from, last), testConfig())

	rep, err := svc.Run(context.Background(), Request{Metric: "visitors"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !rep.Params.ReferenceDate.Equal(last) {
		t.Fatalf("reference date: got %v want %v", rep.Params.ReferenceDate, last)
	}
}

func TestRunNoData(t *testing.T) {
	src, err := source.OpenSQLite(filepath.Join(t.TempDir(), "wbr.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	cols := model.ColumnMapping{Date: "obs_date", Value: "visitors", Group: "site"}
	if err := src.EnsureTable(context.Background(), "foot_traffic", cols); err != nil {
		t.Fatalf("ensure table: %v", err)
	}

	svc := New(src, testConfig())
	_, err = svc.Run(context.Background(), Request{Metric: "visitors"})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestRunUnknownMetric(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := New(seedSource(t, from, ref), testConfig())
	if _, err := svc.Run(context.Background(), Request{Metric: "nope"}); err == nil {
		t.Fatalf("unknown metric must fail")
	}
}

func TestRunRejectsBadMapping(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := New(seedSource(t, from, ref), testConfig())
	if _, err := svc.Run(context.Background(), Request{Metric: "broken", ReferenceDate: ref}); err == nil {
		t.Fatalf("metric without a date column must fail")
	}
}

func TestGroups(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ref := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := New(seedSource(t, from, ref), testConfig())

	groups, err := svc.Groups(context.Background(), "visitors")
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 2 || groups[0] != "north" || groups[1] != "south" {
		t.Fatalf("groups: %v", groups)
	}
}

func TestFetchStartCoversOldestPriorYearMonth(t *testing.T) {
	p := model.Params{
		ReferenceDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		WeekWindow:    13,
		MonthWindow:   12,
	}
	start := fetchStart(p)
	// Oldest monthly bucket is Jul 2023, prior year Jul 2022.
	if !start.Before(time.Date(2022, 7, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("fetch start too late: %v", start)
	}
	if start.Before(time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("fetch start needlessly early: %v", start)
	}
}
