package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

func writeCSVFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestCSVObservations(t *testing.T) {
	dir := t.TempDir()
	writeCSVFixture(t, dir, "sales.csv",
		"obs_date,visitors,site\n"+
			"2024-06-01,100,north\n"+
			"2024-06-02,55,south\n"+
			"2023-06-01,90,north\n")
	src, err := OpenCSV(dir)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	got, err := src.Observations(context.Background(), model.Query{
		Table:   "sales",
		Columns: testCols,
		Start:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Group:   "north",
	})
	if err != nil {
		t.Fatalf("observations: %v", err)
	}
	if len(got) != 1 || got[0].Value != 100 || got[0].Group != "north" {
		t.Fatalf("unexpected rows: %+v", got)
	}
}

func TestCSVBadCellReportsRecord(t *testing.T) {
	dir := t.TempDir()
	writeCSVFixture(t, dir, "sales.csv",
		"obs_date,visitors,site\n"+
			"2024-06-01,not-a-number,north\n")
	src, err := OpenCSV(dir)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	_, err = src.Observations(context.Background(), model.Query{
		Table:   "sales",
		Columns: testCols,
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatalf("expected an error for the unparseable value")
	}
}

func TestCSVGroupsAndRange(t *testing.T) {
	dir := t.TempDir()
	writeCSVFixture(t, dir, "sales.csv",
		"obs_date,visitors,site\n"+
			"2024-06-02,1,south\n"+
			"2024-06-01,2,north\n"+
			"2024-06-03,3,north\n")
	src, err := OpenCSV(dir)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	groups, err := src.Groups(context.Background(), "sales", testCols)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 2 || groups[0] != "north" || groups[1] != "south" {
		t.Fatalf("groups: got %v", groups)
	}
	minDate, maxDate, err := src.DateRange(context.Background(), "sales", testCols)
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	if minDate.Day() != 1 || maxDate.Day() != 3 {
		t.Fatalf("date range: got %v .. %v", minDate, maxDate)
	}
}

func TestValidateMapping(t *testing.T) {
	if err := ValidateMapping(model.ColumnMapping{Value: "v"}); err == nil {
		t.Fatalf("missing date column must be rejected")
	}
	if err := ValidateMapping(model.ColumnMapping{Date: "d"}); err == nil {
		t.Fatalf("missing value column must be rejected")
	}
	if err := ValidateMapping(model.ColumnMapping{Date: "d", Value: "v; --"}); err == nil {
		t.Fatalf("sql-ish column name must be rejected")
	}
	if err := ValidateMapping(testCols); err != nil {
		t.Fatalf("valid mapping rejected: %v", err)
	}
}
