// Package tabular turns uploaded question files into ordered records keyed by
// header name. CSV and XLSX inputs produce the same Table shape.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyFile is returned when the input has no header row.
	ErrEmptyFile = errors.New("file is empty")

	// ErrUnsupportedFormat is returned for legacy binary spreadsheets.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoSheets is returned for a workbook without worksheets.
	ErrNoSheets = errors.New("workbook has no sheets")
)

// Record is one non-blank data row.
type Record struct {
	// Line is the row's position among non-blank data rows plus 2,
	// so the first data row under the header is line 2.
	Line int

	// Values maps trimmed header names to trimmed cell values. A column
	// missing from the header has no key; a short row yields "".
	Values map[string]string
}

// Get returns the value for column and whether the header declared it.
func (r Record) Get(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Table is a parsed input file.
type Table struct {
	Headers []string
	Records []Record
}

// Parse picks a parser from the file extension. .xlsx goes to ParseXLSX,
// .xls is rejected and everything else is read as CSV.
func Parse(fileName string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	case ".xls":
		return nil, fmt.Errorf("%w: %s (save as .xlsx or .csv)", ErrUnsupportedFormat, filepath.Ext(fileName))
	default:
		return ParseCSV(r)
	}
}

// ParseCSV reads comma-separated text with a header row.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(Sanitize(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	b := newBuilder(header)
	if len(b.table.Headers) == 0 {
		return nil, ErrEmptyFile
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		// encoding/csv already drops empty lines; a whitespace-only line
		// arrives as a single field.
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		b.add(rec)
	}

	return b.table, nil
}

// ParseXLSX reads the first worksheet of an Office Open XML workbook.
// Rows whose cells are all blank are skipped.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	i := 0
	for i < len(rows) && isBlank(rows[i]) {
		i++
	}
	if i == len(rows) {
		return nil, ErrEmptyFile
	}

	b := newBuilder(rows[i])
	if len(b.table.Headers) == 0 {
		return nil, ErrEmptyFile
	}
	for _, row := range rows[i+1:] {
		if isBlank(row) {
			continue
		}
		b.add(row)
	}

	return b.table, nil
}

type builder struct {
	table   *Table
	columns []int
}

func newBuilder(header []string) *builder {
	b := &builder{table: &Table{}}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		b.table.Headers = append(b.table.Headers, h)
		b.columns = append(b.columns, i)
	}
	return b
}

func (b *builder) add(fields []string) {
	values := make(map[string]string, len(b.table.Headers))
	for j, h := range b.table.Headers {
		col := b.columns[j]
		v := ""
		if col < len(fields) {
			v = strings.TrimSpace(fields[col])
		}
		// Later duplicates of a header overwrite earlier ones.
		values[h] = v
	}
	b.table.Records = append(b.table.Records, Record{
		Line:   len(b.table.Records) + 2,
		Values: values,
	})
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
