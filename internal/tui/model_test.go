package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
	"github.com/open-wbr/wbrdash/internal/wbr"
)

func TestFitLines(t *testing.T) {
	out := fitLines("a\nb", 4, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if len(line) != 4 {
			t.Fatalf("line not padded to width: %q", line)
		}
	}

	out = fitLines("a\nb\nc\nd", 2, 2)
	if got := strings.Count(out, "\n"); got != 1 {
		t.Fatalf("expected truncation to 2 lines, got %q", out)
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("hello world", 8); got != "hello..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateLine("hi", 8); got != "hi" {
		t.Fatalf("got %q", got)
	}
	if got := truncateLine("hello", 3); got != "hel" {
		t.Fatalf("got %q", got)
	}
}

func TestParseWindow(t *testing.T) {
	if n, err := parseWindow("", "weeks"); err != nil || n != 0 {
		t.Fatalf("empty: n=%d err=%v", n, err)
	}
	if n, err := parseWindow(" 6 ", "weeks"); err != nil || n != 6 {
		t.Fatalf("valid: n=%d err=%v", n, err)
	}
	if _, err := parseWindow("0", "weeks"); err == nil {
		t.Fatalf("zero must be rejected")
	}
	if _, err := parseWindow("abc", "weeks"); err == nil {
		t.Fatalf("non-numeric must be rejected")
	}
}

func TestKPIRowsShape(t *testing.T) {
	obs := []model.Observation{
		{Date: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), Value: 10},
	}
	res, err := wbr.Compute(obs, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), wbr.Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	rows := kpiRows(res)
	if len(rows) == 0 {
		t.Fatalf("no rows")
	}
	for _, row := range rows {
		if len(row) != len(kpiColumns()) {
			t.Fatalf("row width mismatch: %v", row)
		}
	}
}
