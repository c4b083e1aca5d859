package source

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/open-wbr/wbrdash/internal/model"
)

// BigQuery reads observations from a BigQuery dataset.
type BigQuery struct {
	client  *bigquery.Client
	project string
	dataset string
}

// OpenBigQuery creates a client for project.dataset using ambient
// application-default credentials.
func OpenBigQuery(ctx context.Context, project, dataset string) (*BigQuery, error) {
	if project == "" || dataset == "" {
		return nil, fmt.Errorf("bigquery: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQuery{client: client, project: project, dataset: dataset}, nil
}

// ID implements Source.
func (s *BigQuery) ID() string {
	return "bigquery:" + s.project + "." + s.dataset
}

// Close implements Source.
func (s *BigQuery) Close() error {
	return s.client.Close()
}

func (s *BigQuery) tableRef(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, s.dataset, table)
}

type bqObservationRow struct {
	Date  civil.Date          `bigquery:"d"`
	Value float64             `bigquery:"v"`
	Group bigquery.NullString `bigquery:"g"`
}

// Observations implements Source.
func (s *BigQuery) Observations(ctx context.Context, q model.Query) ([]model.Observation, error) {
	if err := validateTable(q.Table); err != nil {
		return nil, err
	}
	if err := ValidateMapping(q.Columns); err != nil {
		return nil, err
	}
	groupExpr := "CAST(NULL AS STRING)"
	if q.Columns.Group != "" {
		groupExpr = fmt.Sprintf("CAST(%s AS STRING)", q.Columns.Group)
	}
	sqlText := fmt.Sprintf(`SELECT DATE(%s) AS d, CAST(%s AS FLOAT64) AS v, %s AS g
FROM %s
WHERE DATE(%s) BETWEEN @start AND @end`,
		q.Columns.Date, q.Columns.Value, groupExpr, s.tableRef(q.Table), q.Columns.Date)
	params := []bigquery.QueryParameter{
		{Name: "start", Value: civil.DateOf(q.Start.UTC())},
		{Name: "end", Value: civil.DateOf(q.End.UTC())},
	}
	if q.Group != "" && q.Columns.Group != "" {
		sqlText += fmt.Sprintf(" AND CAST(%s AS STRING) = @grp", q.Columns.Group)
		params = append(params, bigquery.QueryParameter{Name: "grp", Value: q.Group})
	}
	sqlText += " ORDER BY d ASC"

	query := s.client.Query(sqlText)
	query.Parameters = params
	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery read %s: %w", q.Table, err)
	}

	var out []model.Observation
	for {
		var row bqObservationRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery scan %s: %w", q.Table, err)
		}
		out = append(out, model.Observation{
			Date:  row.Date.In(time.UTC),
			Value: row.Value,
			Group: row.Group.StringVal,
		})
	}
	return out, nil
}

type bqRangeRow struct {
	Min civil.Date `bigquery:"min_d"`
	Max civil.Date `bigquery:"max_d"`
}

// DateRange implements Source.
func (s *BigQuery) DateRange(ctx context.Context, table string, cols model.ColumnMapping) (time.Time, time.Time, error) {
	if err := validateTable(table); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := ValidateMapping(cols); err != nil {
		return time.Time{}, time.Time{}, err
	}
	sqlText := fmt.Sprintf(`SELECT MIN(DATE(%s)) AS min_d, MAX(DATE(%s)) AS max_d FROM %s`,
		cols.Date, cols.Date, s.tableRef(table))
	it, err := s.client.Query(sqlText).Read(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bigquery range %s: %w", table, err)
	}
	var row bqRangeRow
	if err := it.Next(&row); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bigquery range %s: %w", table, err)
	}
	if !row.Min.IsValid() || !row.Max.IsValid() {
		// Empty table: zero times, not an error.
		return time.Time{}, time.Time{}, nil
	}
	return row.Min.In(time.UTC), row.Max.In(time.UTC), nil
}

// Groups implements Source.
func (s *BigQuery) Groups(ctx context.Context, table string, cols model.ColumnMapping) ([]string, error) {
	if cols.Group == "" {
		return nil, nil
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}
	if err := ValidateMapping(cols); err != nil {
		return nil, err
	}
	sqlText := fmt.Sprintf(`SELECT DISTINCT CAST(%s AS STRING) AS g FROM %s
WHERE %s IS NOT NULL ORDER BY g ASC`, cols.Group, s.tableRef(table), cols.Group)
	it, err := s.client.Query(sqlText).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery groups %s: %w", table, err)
	}
	var out []string
	for {
		var row struct {
			Group string `bigquery:"g"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery groups %s: %w", table, err)
		}
		if row.Group != "" {
			out = append(out, row.Group)
		}
	}
	return out, nil
}
