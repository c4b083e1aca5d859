package source

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLite is a local file-backed warehouse. It doubles as the target of
// the seed command, so unlike the other sources it can also create tables
// and insert rows.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the SQLite database.
func OpenSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db, path: path}, nil
}

// ID implements Source.
func (s *SQLite) ID() string {
	return "sqlite:" + s.path
}

// Close implements Source.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// EnsureTable creates the metric table when missing. Column names come
// from a validated mapping; there is no user-controlled SQL beyond that.
func (s *SQLite) EnsureTable(ctx context.Context, table string, cols model.ColumnMapping) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if err := ValidateMapping(cols); err != nil {
		return err
	}
	group := cols.Group
	if group == "" {
		group = "grp"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s TEXT NOT NULL,
			%s REAL NOT NULL,
			%s TEXT NOT NULL DEFAULT ''
		);`, table, cols.Date, cols.Value, group),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s);`, table, cols.Date, table, cols.Date),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertObservations stores a batch of rows in one transaction.
func (s *SQLite) InsertObservations(ctx context.Context, table string, cols model.ColumnMapping, rows []model.Observation) (err error) {
	if err := validateTable(table); err != nil {
		return err
	}
	if err := ValidateMapping(cols); err != nil {
		return err
	}
	group := cols.Group
	if group == "" {
		group = "grp"
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)`, table, cols.Date, cols.Value, group))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, row.Date.UTC().Format("2006-01-02"), row.Value, row.Group); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Observations implements Source.
func (s *SQLite) Observations(ctx context.Context, q model.Query) ([]model.Observation, error) {
	if err := validateTable(q.Table); err != nil {
		return nil, err
	}
	if err := ValidateMapping(q.Columns); err != nil {
		return nil, err
	}
	group := q.Columns.Group
	if group == "" {
		group = "''"
	}
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s >= ? AND %s <= ?`,
		q.Columns.Date, q.Columns.Value, group, q.Table, q.Columns.Date, q.Columns.Date)
	args := []any{q.Start.UTC().Format("2006-01-02"), q.End.UTC().Format("2006-01-02")}
	if q.Group != "" && q.Columns.Group != "" {
		query += fmt.Sprintf(` AND %s = ?`, q.Columns.Group)
		args = append(args, q.Group)
	}
	query += fmt.Sprintf(` ORDER BY %s ASC`, q.Columns.Date)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.Observation
	rowNum := 0
	for rows.Next() {
		rowNum++
		var dateText, groupVal string
		var value float64
		if err := rows.Scan(&dateText, &value, &groupVal); err != nil {
			return nil, err
		}
		parsed, err := parseDateCell(dateText)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", q.Table, rowNum, err)
		}
		out = append(out, model.Observation{Date: parsed, Value: value, Group: groupVal})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DateRange implements Source.
func (s *SQLite) DateRange(ctx context.Context, table string, cols model.ColumnMapping) (time.Time, time.Time, error) {
	if err := validateTable(table); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := ValidateMapping(cols); err != nil {
		return time.Time{}, time.Time{}, err
	}
	query := fmt.Sprintf(`SELECT MIN(%s), MAX(%s) FROM %s`, cols.Date, cols.Date, table)
	var minText, maxText sql.NullString
	if err := s.db.QueryRowContext(ctx, query).Scan(&minText, &maxText); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !minText.Valid || !maxText.Valid {
		// Empty table: zero times, not an error.
		return time.Time{}, time.Time{}, nil
	}
	minDate, err := parseDateCell(minText.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	maxDate, err := parseDateCell(maxText.String)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return minDate, maxDate, nil
}

// Groups implements Source.
func (s *SQLite) Groups(ctx context.Context, table string, cols model.ColumnMapping) ([]string, error) {
	if cols.Group == "" {
		return nil, nil
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if err := ValidateMapping(cols); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s != '' ORDER BY %s ASC`,
		cols.Group, table, cols.Group, cols.Group)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateTable(table string) error {
	if !isIdentifier(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}
