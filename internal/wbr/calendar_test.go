package wbr

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekBoundaries(t *testing.T) {
	// Wednesday 2024-06-12 sits in the ISO week Mon Jun 10 .. Sun Jun 16.
	wed := date(2024, time.June, 12)
	if got := weekStart(wed); !got.Equal(date(2024, time.June, 10)) {
		t.Fatalf("weekStart: got %v", got)
	}
	if got := weekEnd(wed); !got.Equal(date(2024, time.June, 16)) {
		t.Fatalf("weekEnd: got %v", got)
	}
}

func TestLatestCompleteWeekEnd(t *testing.T) {
	cases := []struct {
		ref  time.Time
		want time.Time
	}{
		{date(2024, time.June, 9), date(2024, time.June, 9)},   // Sunday counts as complete
		{date(2024, time.June, 10), date(2024, time.June, 9)},  // Monday
		{date(2024, time.June, 15), date(2024, time.June, 9)},  // Saturday
		{date(2024, time.June, 16), date(2024, time.June, 16)}, // next Sunday
	}
	for _, tc := range cases {
		if got := latestCompleteWeekEnd(tc.ref); !got.Equal(tc.want) {
			t.Fatalf("latestCompleteWeekEnd(%v): got %v, want %v", tc.ref, got, tc.want)
		}
	}
}

func TestFromISOWeek(t *testing.T) {
	start, ok := fromISOWeek(2024, 1)
	if !ok || !start.Equal(date(2024, time.January, 1)) {
		t.Fatalf("2024-W01: got %v ok=%v", start, ok)
	}
	start, ok = fromISOWeek(2020, 53)
	if !ok || !start.Equal(date(2020, time.December, 28)) {
		t.Fatalf("2020-W53: got %v ok=%v", start, ok)
	}
	if _, ok := fromISOWeek(2019, 53); ok {
		t.Fatalf("2019 has 52 ISO weeks, week 53 must not exist")
	}
}

func TestAlignWeeks(t *testing.T) {
	ref := date(2024, time.June, 15) // Saturday; bucket 0 = week ending Jun 9

	a := Align(date(2024, time.June, 5), ref, 13, 12)
	if a.Week == nil || a.Week.Index != 0 || !a.Week.CurrentYear {
		t.Fatalf("expected CY week bucket 0, got %+v", a.Week)
	}

	// Same ISO week number one year earlier lands in the same bucket as PY.
	a = Align(date(2023, time.June, 7), ref, 13, 12)
	if a.Week == nil || a.Week.Index != 0 || a.Week.CurrentYear {
		t.Fatalf("expected PY week bucket 0, got %+v", a.Week)
	}

	// Two years back is outside the CY/PY pair.
	a = Align(date(2022, time.June, 8), ref, 13, 12)
	if a.Week != nil {
		t.Fatalf("expected no week bucket, got %+v", a.Week)
	}

	// Older than the window.
	a = Align(date(2024, time.January, 2), ref, 13, 12)
	if a.Week != nil {
		t.Fatalf("expected date outside 13-week window, got %+v", a.Week)
	}
}

func TestAlignMonths(t *testing.T) {
	ref := date(2024, time.June, 15)

	a := Align(date(2024, time.March, 10), ref, 13, 12)
	if a.Month == nil || a.Month.Index != 3 || !a.Month.CurrentYear {
		t.Fatalf("expected CY month bucket 3, got %+v", a.Month)
	}

	a = Align(date(2023, time.June, 20), ref, 13, 12)
	if a.Month == nil || a.Month.Index != 0 || a.Month.CurrentYear {
		t.Fatalf("expected PY month bucket 0, got %+v", a.Month)
	}

	// December 2022 is the prior year of bucket 6 (December 2023).
	a = Align(date(2022, time.December, 1), ref, 13, 12)
	if a.Month == nil || a.Month.Index != 6 || a.Month.CurrentYear {
		t.Fatalf("expected PY month bucket 6, got %+v", a.Month)
	}

	a = Align(date(2022, time.June, 1), ref, 13, 12)
	if a.Month != nil {
		t.Fatalf("expected no month bucket, got %+v", a.Month)
	}
}

func TestClampedDate(t *testing.T) {
	if got := clampedDate(2023, time.February, 29); !got.Equal(date(2023, time.February, 28)) {
		t.Fatalf("expected Feb 29 clamped to Feb 28, got %v", got)
	}
	if got := clampedDate(2024, time.February, 29); !got.Equal(date(2024, time.February, 29)) {
		t.Fatalf("expected leap-year Feb 29 kept, got %v", got)
	}
}
