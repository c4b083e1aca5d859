package wbr

import "time"

// Weeks follow ISO 8601: Monday through Sunday, numbered so that week 1
// contains January 4th. Prior-year alignment matches the same ISO week
// number one year earlier, not a fixed 364-day offset.

// isoWeekday maps time.Weekday to ISO numbering (Mon=1 .. Sun=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// startOfDay truncates t to midnight UTC. All bucket arithmetic works on
// whole days in UTC.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekStart returns the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	t = startOfDay(t)
	return t.AddDate(0, 0, 1-isoWeekday(t))
}

// weekEnd returns the Sunday of t's ISO week.
func weekEnd(t time.Time) time.Time {
	return weekStart(t).AddDate(0, 0, 6)
}

// latestCompleteWeekEnd returns the most recent Sunday on or before ref:
// the end of week bucket 0.
func latestCompleteWeekEnd(ref time.Time) time.Time {
	ref = startOfDay(ref)
	if isoWeekday(ref) == 7 {
		return ref
	}
	return ref.AddDate(0, 0, -isoWeekday(ref))
}

// fromISOWeek returns the Monday of the given ISO week, or ok=false when
// the year has no such week (week 53 in a 52-week year).
func fromISOWeek(year, week int) (time.Time, bool) {
	if week < 1 || week > 53 {
		return time.Time{}, false
	}
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	mon1 := jan4.AddDate(0, 0, 1-isoWeekday(jan4))
	start := mon1.AddDate(0, 0, (week-1)*7)
	if gotYear, gotWeek := start.ISOWeek(); gotYear != year || gotWeek != week {
		return time.Time{}, false
	}
	return start, true
}

// firstOfMonth returns the first day of t's month.
func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// quarterStart returns the first day of t's calendar quarter.
func quarterStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	qm := time.Month((int(m)-1)/3*3 + 1)
	return time.Date(y, qm, 1, 0, 0, 0, 0, time.UTC)
}

// yearStart returns January 1st of t's year.
func yearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// daysInMonth returns the length of the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds year/month/day, clamping day to the month's length
// (Feb 29 one year back becomes Feb 28).
func clampedDate(year int, month time.Month, day int) time.Time {
	if max := daysInMonth(year, month); day > max {
		day = max
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// BucketRef locates a date inside the bucketed window.
type BucketRef struct {
	Index       int
	CurrentYear bool
}

// Alignment is the calendar aligner's answer for one date: which week and
// month bucket it contributes to, if any. A nil ref means the date falls
// outside the window or outside the current/prior-year pair.
type Alignment struct {
	Week  *BucketRef
	Month *BucketRef
}

// Align maps date to its week and month buckets relative to ref. Week
// bucket 0 is the most recent ISO week ending on or before ref; month
// bucket 0 is ref's calendar month. Prior-year dates match by ISO week
// number or calendar month number one year earlier.
func Align(date, ref time.Time, weekWindow, monthWindow int) Alignment {
	date = startOfDay(date)
	var out Alignment

	end0 := latestCompleteWeekEnd(ref)
	dateYear, dateWeek := date.ISOWeek()
	for i := 0; i < weekWindow; i++ {
		cyYear, cyWeek := end0.AddDate(0, 0, -7*i).ISOWeek()
		if dateYear == cyYear && dateWeek == cyWeek {
			out.Week = &BucketRef{Index: i, CurrentYear: true}
			break
		}
		if dateYear == cyYear-1 && dateWeek == cyWeek {
			out.Week = &BucketRef{Index: i, CurrentYear: false}
			break
		}
	}

	ry, rm, _ := startOfDay(ref).Date()
	dy, dm, _ := date.Date()
	cyIdx := (ry-dy)*12 + int(rm) - int(dm)
	pyIdx := (ry-dy-1)*12 + int(rm) - int(dm)
	if cyIdx >= 0 && cyIdx < monthWindow {
		out.Month = &BucketRef{Index: cyIdx, CurrentYear: true}
	} else if pyIdx >= 0 && pyIdx < monthWindow {
		out.Month = &BucketRef{Index: pyIdx, CurrentYear: false}
	}
	return out
}
