// Package model defines shared data structures.
package model

import "time"

// Observation is one normalized warehouse row: a day, a metric value, and
// an optional grouping key. This is the only row shape the core pipeline
// ever sees.
type Observation struct {
	Date  time.Time
	Value float64
	Group string
}

// ColumnMapping names the warehouse columns that feed an Observation.
// Group may be empty when the table has no grouping dimension.
type ColumnMapping struct {
	Date  string
	Value string
	Group string
}

// Metric describes one dashboard metric backed by a warehouse table.
type Metric struct {
	Name    string
	Title   string
	Unit    string
	Table   string
	Columns ColumnMapping
}

// Query selects rows from a source for one metric.
type Query struct {
	Table   string
	Columns ColumnMapping
	Start   time.Time // inclusive
	End     time.Time // inclusive
	Group   string    // exact group filter, empty for all rows
}

// Params identifies one WBR computation. Two computations with equal
// Params must produce equal results; the cache keys on all fields.
type Params struct {
	SourceID      string
	Metric        string
	Group         string
	ReferenceDate time.Time
	WeekWindow    int
	MonthWindow   int
}

// DashboardConfig holds presentation-level settings.
type DashboardConfig struct {
	WeekWindow  int
	MonthWindow int
	CacheTTL    time.Duration
}
