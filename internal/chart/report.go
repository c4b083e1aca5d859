package chart

import (
	"fmt"
	"io"

	"github.com/open-wbr/wbrdash/internal/wbr"
)

const dateLayout = "2006-01-02"

// WeekSeries converts the weekly buckets into chronological plot traces,
// current year first.
func WeekSeries(res wbr.Result) []Series {
	n := len(res.Weeks)
	cy := make([]wbr.Value, n)
	py := make([]wbr.Value, n)
	for i, b := range res.Weeks {
		cy[n-1-i] = b.CY
		py[n-1-i] = b.PY
	}
	return []Series{
		{Name: "current year", Values: cy},
		{Name: "prior year", Values: py},
	}
}

// MonthSeries converts the monthly buckets into chronological plot traces.
func MonthSeries(res wbr.Result) []Series {
	n := len(res.Months)
	cy := make([]wbr.Value, n)
	py := make([]wbr.Value, n)
	for i, b := range res.Months {
		cy[n-1-i] = b.CY
		py[n-1-i] = b.PY
	}
	return []Series{
		{Name: "current year", Values: cy},
		{Name: "prior year", Values: py},
	}
}

// KPIRows lays out the comparison summary as table rows. Every cell shows
// the absent marker when the underlying window has no data.
func KPIRows(res wbr.Result) [][]string {
	k := res.KPIs
	rows := make([][]string, 0, 6)

	var lastWeekCY, thisWeekCY, thisWeekPY wbr.Value
	if len(res.Weeks) > 0 {
		thisWeekCY = res.Weeks[0].CY
		thisWeekPY = res.Weeks[0].PY
	}
	if len(res.Weeks) > 1 {
		lastWeekCY = res.Weeks[1].CY
	}
	rows = append(rows, []string{"Week over week", FormatValue(thisWeekCY), FormatValue(lastWeekCY), FormatChange(k.WoWPct)})
	rows = append(rows, []string{"Week YoY", FormatValue(thisWeekCY), FormatValue(thisWeekPY), FormatChange(k.WeekYoYPct)})

	monthLabel := "Month YoY"
	var monthCY, monthPY wbr.Value
	if idx := completeMonthIndex(res); idx >= 0 {
		b := res.Months[idx]
		monthLabel = fmt.Sprintf("Month YoY (%s)", b.CYMonth.Format("2006-01"))
		monthCY = b.CY
		monthPY = b.PY
	}
	rows = append(rows, []string{monthLabel, FormatValue(monthCY), FormatValue(monthPY), FormatChange(k.MonthYoYPct)})

	rows = append(rows, []string{"Month to date", FormatValue(k.MTDCY), FormatValue(k.MTDPY), FormatChange(k.MTDYoYPct)})
	rows = append(rows, []string{"Quarter to date", FormatValue(k.QTDCY), FormatValue(k.QTDPY), FormatChange(k.QTDYoYPct)})
	rows = append(rows, []string{"Year to date", FormatValue(k.YTDCY), FormatValue(k.YTDPY), FormatChange(k.YTDYoYPct)})
	return rows
}

// KPIHeaders returns the column headers matching KPIRows.
func KPIHeaders() []string {
	return []string{"Measure", "Current", "Prior", "Change"}
}

// completeMonthIndex picks the bucket the monthly YoY comparison uses:
// the reference month when it is complete, otherwise the month before.
func completeMonthIndex(res wbr.Result) int {
	if len(res.Months) == 0 {
		return -1
	}
	if !res.Months[0].Partial {
		return 0
	}
	if len(res.Months) > 1 {
		return 1
	}
	return -1
}

// RenderReport writes a full plain-text report: the weekly plot, the
// monthly plot and the comparison table.
func RenderReport(w io.Writer, title string, res wbr.Result, width int, forceColor bool) error {
	if title != "" {
		if _, err := fmt.Fprintf(w, "%s (as of %s)\n\n", title, res.ReferenceDate.Format(dateLayout)); err != nil {
			return err
		}
	}

	if len(res.Weeks) > 0 {
		oldest := res.Weeks[len(res.Weeks)-1]
		newest := res.Weeks[0]
		left := oldest.CYStart.AddDate(0, 0, 6).Format(dateLayout)
		right := newest.CYStart.AddDate(0, 0, 6).Format(dateLayout)
		label := fmt.Sprintf("Weekly totals, %d weeks", len(res.Weeks))
		if err := Plot(w, label, WeekSeries(res), left, right, width, 0, forceColor); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}

	if len(res.Months) > 0 {
		oldest := res.Months[len(res.Months)-1]
		newest := res.Months[0]
		right := newest.CYMonth.Format("2006-01")
		if newest.Partial {
			right += " (partial)"
		}
		label := fmt.Sprintf("Monthly totals, %d months", len(res.Months))
		if err := Plot(w, label, MonthSeries(res), oldest.CYMonth.Format("2006-01"), right, width, 0, forceColor); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}

	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range FormatTable(KPIHeaders(), KPIRows(res), rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
