package wbr

import (
	"math"
	"testing"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

func TestMTDWindow(t *testing.T) {
	// Literal check: daily values 1..5 on June 1-5, reference June 5.
	ref := date(2024, time.June, 5)
	var obs []model.Observation
	for d := 1; d <= 5; d++ {
		obs = append(obs, obsRow(2024, time.June, d, float64(d)))
	}
	k := computeKPIs(obs, ref, nil, nil)
	if !k.MTDCY.Valid || k.MTDCY.Float64 != 15 {
		t.Fatalf("MTD CY: got %+v, want 15", k.MTDCY)
	}
	if k.MTDPY.Valid {
		t.Fatalf("MTD PY must be absent without prior-year rows")
	}
	if k.MTDYoYPct.Valid {
		t.Fatalf("MTD YoY must be absent when PY is absent")
	}
}

func TestMTDPriorYearSameDayRange(t *testing.T) {
	ref := date(2024, time.June, 10)
	obs := []model.Observation{
		obsRow(2024, time.June, 3, 110),
		obsRow(2023, time.June, 8, 100),  // inside June 1-10 of the prior year
		obsRow(2023, time.June, 11, 999), // outside the same day range
	}
	k := computeKPIs(obs, ref, nil, nil)
	if !k.MTDPY.Valid || k.MTDPY.Float64 != 100 {
		t.Fatalf("MTD PY: got %+v, want 100", k.MTDPY)
	}
	if !k.MTDYoYPct.Valid || math.Abs(k.MTDYoYPct.Float64-0.10) > 1e-12 {
		t.Fatalf("MTD YoY: got %+v, want 0.10", k.MTDYoYPct)
	}
}

func TestToDateWindowsClampLeapDay(t *testing.T) {
	// Reference Feb 29: the prior-year windows end on Feb 28, never Mar 1.
	ref := date(2024, time.February, 29)
	obs := []model.Observation{
		obsRow(2024, time.February, 15, 50),
		obsRow(2023, time.February, 28, 40),
		obsRow(2023, time.March, 1, 999),
	}
	k := computeKPIs(obs, ref, nil, nil)
	if !k.MTDPY.Valid || k.MTDPY.Float64 != 40 {
		t.Fatalf("MTD PY: got %+v, want 40", k.MTDPY)
	}
	if !k.QTDPY.Valid || k.QTDPY.Float64 != 40 {
		t.Fatalf("QTD PY: got %+v, want 40", k.QTDPY)
	}
	if !k.YTDPY.Valid || k.YTDPY.Float64 != 40 {
		t.Fatalf("YTD PY: got %+v, want 40", k.YTDPY)
	}
}

func TestQTDAndYTDWindows(t *testing.T) {
	ref := date(2024, time.May, 10) // Q2 starts April 1
	obs := []model.Observation{
		obsRow(2024, time.January, 5, 1),
		obsRow(2024, time.April, 2, 2),
		obsRow(2024, time.May, 9, 3),
		obsRow(2023, time.April, 20, 4),
		obsRow(2023, time.January, 2, 5),
	}
	k := computeKPIs(obs, ref, nil, nil)
	if !k.QTDCY.Valid || k.QTDCY.Float64 != 5 {
		t.Fatalf("QTD CY: got %+v, want 5", k.QTDCY)
	}
	if !k.QTDPY.Valid || k.QTDPY.Float64 != 4 {
		t.Fatalf("QTD PY: got %+v, want 4", k.QTDPY)
	}
	if !k.YTDCY.Valid || k.YTDCY.Float64 != 6 {
		t.Fatalf("YTD CY: got %+v, want 6", k.YTDCY)
	}
	if !k.YTDPY.Valid || k.YTDPY.Float64 != 9 {
		t.Fatalf("YTD PY: got %+v, want 9", k.YTDPY)
	}
}

func TestWeekKPIs(t *testing.T) {
	weeks := []WeekBucket{
		{Index: 0, CY: Present(120), PY: Present(100)},
		{Index: 1, CY: Present(80)},
	}
	k := computeKPIs(nil, date(2024, time.June, 15), weeks, nil)
	if !k.WeekYoYPct.Valid || math.Abs(k.WeekYoYPct.Float64-0.20) > 1e-12 {
		t.Fatalf("week YoY: got %+v, want 0.20", k.WeekYoYPct)
	}
	if !k.WeekYoYAbs.Valid || k.WeekYoYAbs.Float64 != 20 {
		t.Fatalf("week YoY abs: got %+v, want 20", k.WeekYoYAbs)
	}
	if !k.WoWPct.Valid || math.Abs(k.WoWPct.Float64-0.5) > 1e-12 {
		t.Fatalf("WoW: got %+v, want 0.5", k.WoWPct)
	}
}

func TestYoYAbsentOnZeroDenominator(t *testing.T) {
	weeks := []WeekBucket{
		{Index: 0, CY: Present(120), PY: Present(0)},
		{Index: 1, CY: Present(0)},
	}
	k := computeKPIs(nil, date(2024, time.June, 15), weeks, nil)
	if k.WeekYoYPct.Valid {
		t.Fatalf("YoY with PY=0 must be absent, got %+v", k.WeekYoYPct)
	}
	if k.WoWPct.Valid {
		t.Fatalf("WoW with previous week 0 must be absent, got %+v", k.WoWPct)
	}
	if !k.WeekYoYAbs.Valid || k.WeekYoYAbs.Float64 != 120 {
		t.Fatalf("YoY abs stays defined, got %+v", k.WeekYoYAbs)
	}
}

func TestMonthYoYUsesLatestCompleteMonth(t *testing.T) {
	months := []MonthBucket{
		{Index: 0, CY: Present(15), PY: Present(5)},
		{Index: 1, CY: Present(200), PY: Present(100)},
	}
	// Mid-month reference: the partial month is skipped.
	k := computeKPIs(nil, date(2024, time.June, 15), nil, months)
	if !k.MonthYoYPct.Valid || math.Abs(k.MonthYoYPct.Float64-1.0) > 1e-12 {
		t.Fatalf("month YoY mid-month: got %+v, want 1.0", k.MonthYoYPct)
	}
	// Month-end reference: bucket 0 is complete.
	k = computeKPIs(nil, date(2024, time.June, 30), nil, months)
	if !k.MonthYoYPct.Valid || math.Abs(k.MonthYoYPct.Float64-2.0) > 1e-12 {
		t.Fatalf("month YoY at month end: got %+v, want 2.0", k.MonthYoYPct)
	}
}
