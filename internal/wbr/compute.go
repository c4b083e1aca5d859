package wbr

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/open-wbr/wbrdash/internal/model"
)

// ErrInvalidInput marks unusable computation parameters: a malformed
// reference date or a negative window size. Callers match it with
// errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Defaults per standard WBR practice.
const (
	DefaultWeekWindow  = 13
	DefaultMonthWindow = 12
)

// Options tunes one computation. Zero window values take the defaults;
// negative values are rejected.
type Options struct {
	GroupFilter string
	WeekWindow  int
	MonthWindow int
}

// Result is the full output of one computation: the aligned weekly and
// monthly series plus the KPI set. It is immutable once returned and
// owned by the caller.
type Result struct {
	ReferenceDate time.Time
	Weeks         []WeekBucket
	Months        []MonthBucket
	KPIs          KPISet
}

// Compute runs the full pipeline: align, aggregate, derive KPIs. It is a
// pure function of its inputs: no I/O, no shared state, and a canonical
// date-sorted summation order so identical inputs give identical results.
// Empty observations are not an error; every bucket and KPI comes back
// absent.
func Compute(obs []model.Observation, referenceDate time.Time, opts Options) (Result, error) {
	if referenceDate.IsZero() {
		return Result{}, fmt.Errorf("%w: reference date is not set", ErrInvalidInput)
	}
	weekWindow := opts.WeekWindow
	if weekWindow == 0 {
		weekWindow = DefaultWeekWindow
	}
	monthWindow := opts.MonthWindow
	if monthWindow == 0 {
		monthWindow = DefaultMonthWindow
	}
	if weekWindow < 0 || monthWindow < 0 {
		return Result{}, fmt.Errorf("%w: window sizes must be positive (weeks=%d months=%d)", ErrInvalidInput, opts.WeekWindow, opts.MonthWindow)
	}

	ref := startOfDay(referenceDate)
	rows := normalize(obs, opts.GroupFilter)

	result := Result{
		ReferenceDate: ref,
		Weeks:         buildWeekBuckets(rows, ref, weekWindow),
		Months:        buildMonthBuckets(rows, ref, monthWindow),
	}
	result.KPIs = computeKPIs(rows, ref, result.Weeks, result.Months)
	return result, nil
}

// ParseReferenceDate parses a YYYY-MM-DD reference date, reporting
// ErrInvalidInput on malformed values.
func ParseReferenceDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reference date %q (expected YYYY-MM-DD)", ErrInvalidInput, s)
	}
	return t, nil
}

// normalize filters by group, truncates dates to whole UTC days, and
// sorts. Sorting fixes the floating-point summation order so repeated
// calls over the same rows are bit-identical.
func normalize(obs []model.Observation, group string) []model.Observation {
	rows := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if group != "" && o.Group != group {
			continue
		}
		o.Date = startOfDay(o.Date)
		rows = append(rows, o)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		if rows[i].Group != rows[j].Group {
			return rows[i].Group < rows[j].Group
		}
		return rows[i].Value < rows[j].Value
	})
	return rows
}
