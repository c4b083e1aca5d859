// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/open-wbr/wbrdash/internal/model"
)

// FileConfig represents the TOML configuration file. Pointer fields
// distinguish "unset" from zero so CLI flags can override file values.
type FileConfig struct {
	Source    SourceConfig   `toml:"source"`
	Dashboard DashConfig     `toml:"dashboard"`
	Auth      AuthConfig     `toml:"auth"`
	Metrics   []MetricConfig `toml:"metric"`
}

// SourceConfig maps warehouse connection settings.
type SourceConfig struct {
	Driver  *string `toml:"driver"`
	DSN     *string `toml:"dsn"`
	Project *string `toml:"project"`
	Dataset *string `toml:"dataset"`
}

// DashConfig maps dashboard-level settings.
type DashConfig struct {
	Weeks           *int `toml:"weeks"`
	Months          *int `toml:"months"`
	CacheTTLMinutes *int `toml:"cache-ttl-minutes"`
}

// AuthConfig maps authentication settings.
type AuthConfig struct {
	Enabled         *bool   `toml:"enabled"`
	CredentialsPath *string `toml:"credentials"`
	SessionTTLHours *int    `toml:"session-ttl-hours"`
}

// MetricConfig maps one [[metric]] block.
type MetricConfig struct {
	Name        string `toml:"name"`
	Title       string `toml:"title"`
	Unit        string `toml:"unit"`
	Table       string `toml:"table"`
	DateColumn  string `toml:"date-column"`
	ValueColumn string `toml:"value-column"`
	GroupColumn string `toml:"group-column"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Metric resolves a configured metric by name; empty name picks the first
// configured metric.
func (c FileConfig) Metric(name string) (model.Metric, error) {
	if len(c.Metrics) == 0 {
		return model.Metric{}, fmt.Errorf("no metrics configured; add a [[metric]] block to the config")
	}
	for _, m := range c.Metrics {
		if name == "" || m.Name == name {
			return m.toModel(), nil
		}
	}
	return model.Metric{}, fmt.Errorf("unknown metric %q", name)
}

// MetricNames lists configured metric names in file order.
func (c FileConfig) MetricNames() []string {
	names := make([]string, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		names = append(names, m.Name)
	}
	return names
}

func (m MetricConfig) toModel() model.Metric {
	title := m.Title
	if title == "" {
		title = m.Name
	}
	return model.Metric{
		Name:  m.Name,
		Title: title,
		Unit:  m.Unit,
		Table: m.Table,
		Columns: model.ColumnMapping{
			Date:  m.DateColumn,
			Value: m.ValueColumn,
			Group: m.GroupColumn,
		},
	}
}

// DashboardSettings resolves dashboard settings with defaults applied.
func (c FileConfig) DashboardSettings() model.DashboardConfig {
	out := model.DashboardConfig{
		WeekWindow:  13,
		MonthWindow: 12,
		CacheTTL:    time.Hour,
	}
	if c.Dashboard.Weeks != nil {
		out.WeekWindow = *c.Dashboard.Weeks
	}
	if c.Dashboard.Months != nil {
		out.MonthWindow = *c.Dashboard.Months
	}
	if c.Dashboard.CacheTTLMinutes != nil {
		out.CacheTTL = time.Duration(*c.Dashboard.CacheTTLMinutes) * time.Minute
	}
	return out
}
