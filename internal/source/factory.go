package source

import (
	"context"
	"fmt"
	"strings"
)

// Settings selects and configures a warehouse backend.
type Settings struct {
	Driver  string // sqlite, mysql, bigquery, csv; inferred from DSN when empty
	DSN     string // file path (sqlite/csv) or connection URL (mysql)
	Project string // bigquery only
	Dataset string // bigquery only
}

// Open builds the configured Source.
func Open(ctx context.Context, cfg Settings) (Source, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = inferDriver(cfg)
	}
	switch driver {
	case "sqlite":
		return OpenSQLite(cfg.DSN)
	case "mysql", "mariadb":
		return OpenMySQL(cfg.DSN)
	case "bigquery":
		return OpenBigQuery(ctx, cfg.Project, cfg.Dataset)
	case "csv":
		return OpenCSV(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown source driver %q", driver)
	}
}

func inferDriver(cfg Settings) string {
	switch {
	case cfg.Project != "" || cfg.Dataset != "":
		return "bigquery"
	case strings.HasPrefix(cfg.DSN, "mysql://"), strings.HasPrefix(cfg.DSN, "mariadb://"):
		return "mysql"
	case strings.HasSuffix(cfg.DSN, ".db"), strings.HasSuffix(cfg.DSN, ".sqlite"):
		return "sqlite"
	default:
		return ""
	}
}
