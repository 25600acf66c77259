package prepare

import (
	"math"
	"strconv"
	"strings"
)

// cellState classifies a numeric cell.
type cellState int

const (
	cellValue cellState = iota
	cellEmpty
	cellInvalid
)

// parseNumber accepts a decimal point or a decimal comma. When both appear
// the rightmost one is the decimal separator and the other groups thousands.
func parseNumber(v string) (float64, cellState) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, cellEmpty
	}
	v = strings.ReplaceAll(v, "−", "-")
	v = strings.ReplaceAll(v, " ", "")

	comma := strings.LastIndex(v, ",")
	dot := strings.LastIndex(v, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		v = strings.ReplaceAll(v, ",", "")
	case comma >= 0:
		if strings.Count(v, ",") > 1 {
			return 0, cellInvalid
		}
		v = strings.Replace(v, ",", ".", 1)
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, cellInvalid
	}
	return f, cellValue
}
