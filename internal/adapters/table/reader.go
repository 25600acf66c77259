// Package table reads observation tables from CSV and XLSX files and writes
// estimation results back out as CSV.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/okian/estimatb/internal/domain/model"
)

// Sentinel errors.
var (
	ErrEmptyTable        = errors.New("table has no header row")
	ErrUnsupportedFormat = errors.New("unsupported table format")
	ErrSheetNotFound     = errors.New("sheet not found")
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	zipMagic   = []byte("PK\x03\x04")
	delimiters = []rune{';', '\t', ','}
)

// Format identifies an input file type.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a format from the file name, falling back to sniffing
// the content for a zip container.
func DetectFormat(name string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".tsv", ".txt":
		return FormatCSV, nil
	}
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX, nil
	}
	if len(head) > 0 {
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// Read dispatches on the detected format. sheet is ignored for CSV.
func Read(name string, r io.Reader, sheet string) (model.Table, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zipMagic))
	f, err := DetectFormat(name, head)
	if err != nil {
		return model.Table{}, err
	}
	if f == FormatXLSX {
		return ReadXLSX(br, WithSheet(sheet))
	}
	return ReadCSV(br)
}

// CSVOption configures ReadCSV.
type CSVOption func(*csvConfig)

type csvConfig struct {
	delimiter rune
}

// WithDelimiter disables delimiter detection.
func WithDelimiter(d rune) CSVOption {
	return func(c *csvConfig) {
		c.delimiter = d
	}
}

// ReadCSV reads a delimited file. A leading UTF-8 BOM is dropped and the
// delimiter is detected from the header line unless one is given. The first
// non-blank record is the header.
func ReadCSV(r io.Reader, opts ...CSVOption) (model.Table, error) {
	var cfg csvConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return model.Table{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if cfg.delimiter == 0 {
		cfg.delimiter = detectDelimiter(firstLine(data))
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = cfg.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return model.Table{}, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records)
}

func firstLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// detectDelimiter picks the candidate that splits the header into the most
// fields. Ties go to the earlier candidate, so "a;b,c" reads as semicolons.
func detectDelimiter(header string) rune {
	best, bestN := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(header, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func fromRecords(records [][]string) (model.Table, error) {
	start := -1
	for i, rec := range records {
		if !blank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return model.Table{}, ErrEmptyTable
	}
	headers := make([]string, len(records[start]))
	for i, h := range records[start] {
		headers[i] = strings.TrimSpace(h)
	}
	return model.Table{Headers: headers, Rows: records[start+1:]}, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
