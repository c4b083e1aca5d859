package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver.
)

// MySQL reads observations from a MySQL/MariaDB warehouse.
type MySQL struct {
	db  *sql.DB
	dsn string
}

// OpenMySQL accepts either a driver DSN or a mysql:// / mariadb:// URL.
func OpenMySQL(dsn string) (*MySQL, error) {
	driverDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", driverDSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &MySQL{db: db, dsn: dsn}, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mysql://") && !strings.HasPrefix(dsn, "mariadb://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user := ""
	pass := ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	host := u.Host
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || host == "" || db == "" {
		return "", fmt.Errorf("incomplete dsn (need user, host, and database)")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC", user, pass, host, db), nil
}

// ID implements Source.
func (s *MySQL) ID() string {
	return "mysql:" + s.dsn
}

// Close implements Source.
func (s *MySQL) Close() error {
	return s.db.Close()
}

// mysqlDateLayout formats window bounds as DATETIME literals, always UTC.
const mysqlDateLayout = "2006-01-02 15:04:05"

// Observations implements Source.
func (s *MySQL) Observations(ctx context.Context, q model.Query) ([]model.Observation, error) {
	if err := validateTable(q.Table); err != nil {
		return nil, err
	}
	if err := ValidateMapping(q.Columns); err != nil {
		return nil, err
	}
	groupCol := "''"
	if q.Columns.Group != "" {
		groupCol = q.Columns.Group
	}
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s >= ? AND %s < ?`,
		q.Columns.Date, q.Columns.Value, groupCol, q.Table, q.Columns.Date, q.Columns.Date)
	args := []any{
		q.Start.UTC().Format(mysqlDateLayout),
		q.End.UTC().AddDate(0, 0, 1).Format(mysqlDateLayout), // inclusive end, DATETIME-safe
	}
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
	for rows.Next() {
		var date time.Time
		var value float64
		var group sql.NullString
		if err := rows.Scan(&date, &value, &group); err != nil {
			return nil, err
		}
		out = append(out, model.Observation{Date: date, Value: value, Group: group.String})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DateRange implements Source.
func (s *MySQL) DateRange(ctx context.Context, table string, cols model.ColumnMapping) (time.Time, time.Time, error) {
	if err := validateTable(table); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := ValidateMapping(cols); err != nil {
		return time.Time{}, time.Time{}, err
	}
	query := fmt.Sprintf(`SELECT MIN(%s), MAX(%s) FROM %s`, cols.Date, cols.Date, table)
	var minDate, maxDate sql.NullTime
	if err := s.db.QueryRowContext(ctx, query).Scan(&minDate, &maxDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !minDate.Valid || !maxDate.Valid {
		// Empty table: zero times, not an error.
		return time.Time{}, time.Time{}, nil
	}
	return minDate.Time, maxDate.Time, nil
}

// Groups implements Source.
func (s *MySQL) Groups(ctx context.Context, table string, cols model.ColumnMapping) ([]string, error) {
	if cols.Group == "" {
		return nil, nil
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if err := ValidateMapping(cols); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL AND %s != '' ORDER BY %s ASC`,
		cols.Group, table, cols.Group, cols.Group, cols.Group)
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
