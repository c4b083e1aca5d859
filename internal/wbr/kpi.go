package wbr

import (
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

// KPISet holds the scalar comparison metrics. Percent fields are exact
// ratios (0.12 = +12%); formatting is the renderer's concern. Any field
// whose prior-year denominator is absent or zero is absent — never zero,
// NaN, or infinity.
type KPISet struct {
	WoWPct Value
	WoWAbs Value

	WeekYoYPct Value
	WeekYoYAbs Value

	MonthYoYPct Value

	MTDCY     Value
	MTDPY     Value
	MTDYoYPct Value

	QTDCY     Value
	QTDPY     Value
	QTDYoYPct Value

	YTDCY     Value
	YTDPY     Value
	YTDYoYPct Value
}

// computeKPIs derives the KPISet from the aligned buckets plus the raw
// day-level observations. The to-date windows need day granularity, so
// bucket sums alone are not enough.
func computeKPIs(obs []model.Observation, ref time.Time, weeks []WeekBucket, months []MonthBucket) KPISet {
	var k KPISet
	ref = startOfDay(ref)

	if len(weeks) > 0 {
		b0 := weeks[0]
		k.WeekYoYPct = ratioChange(b0.CY, b0.PY)
		k.WeekYoYAbs = diff(b0.CY, b0.PY)
		if len(weeks) > 1 {
			k.WoWPct = ratioChange(b0.CY, weeks[1].CY)
			k.WoWAbs = diff(b0.CY, weeks[1].CY)
		}
	}

	if i := latestCompleteMonthIndex(ref); i >= 0 && i < len(months) {
		k.MonthYoYPct = ratioChange(months[i].CY, months[i].PY)
	}

	k.MTDCY = sumRange(obs, firstOfMonth(ref), ref)
	k.MTDPY = sumRange(obs, priorYear(firstOfMonth(ref)), priorYear(ref))
	k.MTDYoYPct = ratioChange(k.MTDCY, k.MTDPY)

	k.QTDCY = sumRange(obs, quarterStart(ref), ref)
	k.QTDPY = sumRange(obs, priorYear(quarterStart(ref)), priorYear(ref))
	k.QTDYoYPct = ratioChange(k.QTDCY, k.QTDPY)

	k.YTDCY = sumRange(obs, yearStart(ref), ref)
	k.YTDPY = sumRange(obs, priorYear(yearStart(ref)), priorYear(ref))
	k.YTDYoYPct = ratioChange(k.YTDCY, k.YTDPY)

	return k
}

// latestCompleteMonthIndex is 0 when the reference date closes its month,
// otherwise 1 (the preceding full month).
func latestCompleteMonthIndex(ref time.Time) int {
	if ref.Day() == daysInMonth(ref.Year(), ref.Month()) {
		return 0
	}
	return 1
}

// priorYear shifts a date one year back, clamping the day of month so the
// prior-year window covers the same relative span (Feb 29 -> Feb 28).
func priorYear(t time.Time) time.Time {
	return clampedDate(t.Year()-1, t.Month(), t.Day())
}
