package wbr

import (
	"testing"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

func obsRow(y int, m time.Month, d int, v float64) model.Observation {
	return model.Observation{Date: date(y, m, d), Value: v}
}

func TestWeekBucketAdditivity(t *testing.T) {
	// Bucket 0 for ref 2024-06-15 is Mon Jun 3 .. Sun Jun 9. The bucket sum
	// must equal the sum of the daily values, however the days are split.
	ref := date(2024, time.June, 15)
	var obs []model.Observation
	want := 0.0
	for d := 3; d <= 9; d++ {
		obs = append(obs, obsRow(2024, time.June, d, float64(d)))
		want += float64(d)
	}
	weeks := buildWeekBuckets(obs, ref, 13)
	if !weeks[0].CY.Valid || weeks[0].CY.Float64 != want {
		t.Fatalf("bucket 0 CY: got %+v, want %v", weeks[0].CY, want)
	}
	if !weeks[0].CYStart.Equal(date(2024, time.June, 3)) {
		t.Fatalf("bucket 0 CYStart: got %v", weeks[0].CYStart)
	}
	if weeks[0].PY.Valid {
		t.Fatalf("bucket 0 PY must be absent without prior-year rows")
	}
}

func TestSparseBucketsStayAbsent(t *testing.T) {
	ref := date(2024, time.June, 15)
	obs := []model.Observation{obsRow(2024, time.May, 1, 42)} // bucket 5 week (Apr 29 - May 5)
	weeks := buildWeekBuckets(obs, ref, 13)
	if len(weeks) != 13 {
		t.Fatalf("expected full 13-bucket window, got %d", len(weeks))
	}
	for _, b := range weeks {
		if b.Index == 5 {
			if !b.CY.Valid || b.CY.Float64 != 42 {
				t.Fatalf("bucket 5 CY: got %+v", b.CY)
			}
			continue
		}
		if b.CY.Valid || b.PY.Valid {
			t.Fatalf("bucket %d must be absent, got CY=%+v PY=%+v", b.Index, b.CY, b.PY)
		}
	}
}

func TestWeek53PriorYearAbsent(t *testing.T) {
	// 2021-01-03 is the Sunday closing ISO week 2020-W53. 2019 has only 52
	// weeks, so the prior-year side of bucket 0 must stay absent even with
	// plenty of prior-year data nearby.
	ref := date(2021, time.January, 3)
	obs := []model.Observation{
		obsRow(2020, time.December, 29, 10), // 2020-W53
		obsRow(2019, time.December, 24, 7),  // 2019-W52
		obsRow(2020, time.December, 22, 5),  // 2020-W52
	}
	weeks := buildWeekBuckets(obs, ref, 13)

	b0 := weeks[0]
	if !b0.CYStart.Equal(date(2020, time.December, 28)) {
		t.Fatalf("bucket 0 should be 2020-W53, got start %v", b0.CYStart)
	}
	if !b0.PYStart.IsZero() {
		t.Fatalf("bucket 0 PYStart should be zero for a missing week 53, got %v", b0.PYStart)
	}
	if !b0.CY.Valid || b0.CY.Float64 != 10 {
		t.Fatalf("bucket 0 CY: got %+v", b0.CY)
	}
	if b0.PY.Valid {
		t.Fatalf("bucket 0 PY must be absent when the prior year lacks week 53")
	}

	b1 := weeks[1]
	if !b1.CY.Valid || b1.CY.Float64 != 5 {
		t.Fatalf("bucket 1 CY: got %+v", b1.CY)
	}
	if !b1.PY.Valid || b1.PY.Float64 != 7 {
		t.Fatalf("bucket 1 PY should compare normally, got %+v", b1.PY)
	}
}

func TestMonthBuckets(t *testing.T) {
	ref := date(2024, time.June, 15)
	obs := []model.Observation{
		obsRow(2024, time.June, 2, 3),
		obsRow(2024, time.June, 14, 4),
		obsRow(2023, time.June, 30, 9),
		obsRow(2024, time.March, 1, 2),
	}
	months := buildMonthBuckets(obs, ref, 12)
	if len(months) != 12 {
		t.Fatalf("expected 12 month buckets, got %d", len(months))
	}
	b0 := months[0]
	if !b0.CY.Valid || b0.CY.Float64 != 7 {
		t.Fatalf("bucket 0 CY: got %+v", b0.CY)
	}
	if !b0.PY.Valid || b0.PY.Float64 != 9 {
		t.Fatalf("bucket 0 PY: got %+v", b0.PY)
	}
	if !b0.Partial || b0.DaysElapsed != 15 {
		t.Fatalf("bucket 0 should be partial with 15 days elapsed, got %+v", b0)
	}
	if !months[3].CY.Valid || months[3].CY.Float64 != 2 {
		t.Fatalf("bucket 3 CY: got %+v", months[3].CY)
	}
}

func TestMonthBucketCompleteAtMonthEnd(t *testing.T) {
	months := buildMonthBuckets(nil, date(2024, time.June, 30), 12)
	if months[0].Partial {
		t.Fatalf("month ending on the reference date must not be partial")
	}
	if months[0].DaysElapsed != 30 {
		t.Fatalf("expected 30 days elapsed, got %d", months[0].DaysElapsed)
	}
}
