package model

import "strings"

// Table is a raw tabular dataset as read from a delimited file or a sheet.
// Cells are kept as text; the preparer owns all interpretation.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the trimmed cell at row r, column c, or "" when out of range.
func (t Table) Cell(r, c int) string {
	if r < 0 || r >= len(t.Rows) || c < 0 || c >= len(t.Rows[r]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[r][c])
}

// BlankRow reports whether every cell of row r is empty.
func (t Table) BlankRow(r int) bool {
	if r < 0 || r >= len(t.Rows) {
		return true
	}
	for _, v := range t.Rows[r] {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
