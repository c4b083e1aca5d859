package wbr

import (
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

// WeekBucket is one aligned weekly slot. Index 0 is the most recent
// complete ISO week; higher indexes go back in time. PYStart is zero and
// PY stays absent when the prior year has no matching ISO week (the
// week-53 case).
type WeekBucket struct {
	Index   int
	CYStart time.Time // Monday of the current-year week
	PYStart time.Time // Monday of the same ISO week one year earlier
	CY      Value
	PY      Value
}

// MonthBucket is one aligned monthly slot. Index 0 is the month containing
// the reference date and may be partial.
type MonthBucket struct {
	Index       int
	CYMonth     time.Time // first day of the current-year month
	PYMonth     time.Time // first day of the same month one year earlier
	CY          Value
	PY          Value
	Partial     bool // true on index 0 when the reference date is mid-month
	DaysElapsed int  // days of the month covered, set on index 0
}

// buildWeekBuckets lays out weekWindow empty buckets anchored at ref and
// sums date-sorted observations into them.
func buildWeekBuckets(obs []model.Observation, ref time.Time, weekWindow int) []WeekBucket {
	end0 := latestCompleteWeekEnd(ref)
	buckets := make([]WeekBucket, weekWindow)
	for i := range buckets {
		cyStart := weekStart(end0.AddDate(0, 0, -7*i))
		isoYear, isoWeek := cyStart.ISOWeek()
		buckets[i] = WeekBucket{Index: i, CYStart: cyStart}
		if pyStart, ok := fromISOWeek(isoYear-1, isoWeek); ok {
			buckets[i].PYStart = pyStart
		}
	}
	for _, o := range obs {
		wref := Align(o.Date, ref, weekWindow, 0).Week
		if wref == nil {
			continue
		}
		b := &buckets[wref.Index]
		if wref.CurrentYear {
			b.CY.add(o.Value)
		} else if !b.PYStart.IsZero() {
			b.PY.add(o.Value)
		}
	}
	return buckets
}

// buildMonthBuckets lays out monthWindow empty buckets anchored at ref's
// month and sums date-sorted observations into them.
func buildMonthBuckets(obs []model.Observation, ref time.Time, monthWindow int) []MonthBucket {
	ref = startOfDay(ref)
	first := firstOfMonth(ref)
	buckets := make([]MonthBucket, monthWindow)
	for i := range buckets {
		cyMonth := first.AddDate(0, -i, 0)
		buckets[i] = MonthBucket{
			Index:   i,
			CYMonth: cyMonth,
			PYMonth: cyMonth.AddDate(-1, 0, 0),
		}
	}
	buckets[0].DaysElapsed = ref.Day()
	buckets[0].Partial = ref.Day() < daysInMonth(ref.Year(), ref.Month())

	for _, o := range obs {
		mref := Align(o.Date, ref, 0, monthWindow).Month
		if mref == nil {
			continue
		}
		b := &buckets[mref.Index]
		if mref.CurrentYear {
			b.CY.add(o.Value)
		} else {
			b.PY.add(o.Value)
		}
	}
	return buckets
}

// sumRange sums observations with start <= date <= end. Absent when no
// rows fall inside the window; a window of rows summing to zero is a
// present zero.
func sumRange(obs []model.Observation, start, end time.Time) Value {
	var v Value
	for _, o := range obs {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		v.add(o.Value)
	}
	return v
}
