package table

import (
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/okian/estimatb/internal/domain/model"
)

// XLSXOption configures ReadXLSX.
type XLSXOption func(*xlsxConfig)

type xlsxConfig struct {
	sheet string
}

// WithSheet selects a sheet by name. Empty means the first sheet.
func WithSheet(name string) XLSXOption {
	return func(c *xlsxConfig) {
		c.sheet = name
	}
}

// ReadXLSX reads one sheet of a workbook. Cells are read raw, so date cells
// arrive as spreadsheet serial numbers and the preparer converts them.
func ReadXLSX(r io.Reader, opts ...XLSXOption) (model.Table, error) {
	var cfg xlsxConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.Table{}, ErrEmptyTable
	}
	sheet := cfg.sheet
	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return model.Table{}, fmt.Errorf("%w: %q (available: %v)", ErrSheetNotFound, sheet, sheets)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromRecords(rows)
}

// Sheets lists the sheet names of a workbook in order.
func Sheets(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
