package prepare

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Day-first layouts are tried before anything else.
var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"02/01/06",
	"2/1/06",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Locale-agnostic fallback: ISO forms, month-first forms and named months.
var agnosticLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"01/02/06",
	"1/2/06",
	"01-02-06",
	"1-2-06",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
}

// Serial day numbers outside this window are not treated as spreadsheet dates.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465 // 9999-12-31
)

func parseWith(v string, layouts []string) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseExcelSerial(v string) (time.Time, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < minExcelSerial || f > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseAgnostic(v string) (time.Time, bool) {
	if t, ok := parseWith(v, agnosticLayouts); ok {
		return t, true
	}
	return parseExcelSerial(v)
}

// parseDates parses a whole column. The day-first pass must succeed for every
// value; otherwise the column is re-parsed with the agnostic layouts, and a
// value the retry cannot read keeps its day-first date. bad holds the
// indices that failed both passes.
func parseDates(values []string) (dates []time.Time, bad []int) {
	first := make([]time.Time, len(values))
	var failFirst []int
	for i, v := range values {
		t, ok := parseWith(v, dayFirstLayouts)
		if !ok {
			failFirst = append(failFirst, i)
			continue
		}
		first[i] = t
	}
	if len(failFirst) == 0 {
		return first, nil
	}

	second := make([]time.Time, len(values))
	failed := make(map[int]bool, len(failFirst))
	for _, i := range failFirst {
		failed[i] = true
	}
	for i, v := range values {
		t, ok := parseAgnostic(v)
		switch {
		case ok:
			second[i] = t
		case failed[i]:
			bad = append(bad, i)
		default:
			second[i] = first[i]
		}
	}
	if len(bad) > 0 {
		return nil, bad
	}
	return second, nil
}
