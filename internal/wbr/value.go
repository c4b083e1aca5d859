// Package wbr implements the WBR metric pipeline: calendar-aligned weekly
// and monthly current-year/prior-year aggregates plus derived KPIs.
package wbr

// Value is an absent-aware number. A bucket with no contributing rows and
// a KPI with a missing or zero denominator are absent, never zero. The
// field layout mirrors sql.NullFloat64.
type Value struct {
	Float64 float64
	Valid   bool
}

// Present returns a valid Value.
func Present(v float64) Value {
	return Value{Float64: v, Valid: true}
}

// Absent returns the absent Value.
func Absent() Value {
	return Value{}
}

// add accumulates x into v, marking it present.
func (v *Value) add(x float64) {
	v.Float64 += x
	v.Valid = true
}

// ratioChange returns (cy-py)/py, absent when py is absent or zero.
func ratioChange(cy, py Value) Value {
	if !cy.Valid || !py.Valid || py.Float64 == 0 {
		return Absent()
	}
	return Present((cy.Float64 - py.Float64) / py.Float64)
}

// diff returns cy-py, absent when either side is absent.
func diff(cy, py Value) Value {
	if !cy.Valid || !py.Valid {
		return Absent()
	}
	return Present(cy.Float64 - py.Float64)
}
