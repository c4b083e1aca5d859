package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/open-wbr/wbrdash/internal/wbr"
)

// AbsentCell marks a value with no underlying data. Absent is distinct
// from zero everywhere it is displayed.
const AbsentCell = "—"

// FormatNumber renders a value compactly, abbreviating thousands and
// millions so axis labels stay narrow.
func FormatNumber(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return trimZeros(strconv.FormatFloat(v/1e9, 'f', 1, 64)) + "b"
	case abs >= 1e6:
		return trimZeros(strconv.FormatFloat(v/1e6, 'f', 1, 64)) + "m"
	case abs >= 1e4:
		return trimZeros(strconv.FormatFloat(v/1e3, 'f', 1, 64)) + "k"
	default:
		return trimZeros(strconv.FormatFloat(v, 'f', 2, 64))
	}
}

// FormatValue renders an optional value, showing the absent marker when
// there is no data.
func FormatValue(v wbr.Value) string {
	if !v.Valid {
		return AbsentCell
	}
	return FormatNumber(v.Float64)
}

// FormatChange renders a fractional change as a signed percentage.
func FormatChange(v wbr.Value) string {
	if !v.Valid {
		return AbsentCell
	}
	return fmt.Sprintf("%+.1f%%", v.Float64*100)
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
