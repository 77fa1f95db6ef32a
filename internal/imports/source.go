package imports

// source.go reads CSV and XLSX files into a Table of RawRows.
//
// File-level problems (no header, duplicate columns, missing required
// columns) become batch issues on the Table instead of errors, so a preview
// can still be produced and shown. Only I/O failures are returned as errors.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxHeaderSearchRows is how many leading rows are scanned for the header.
const DefaultMaxHeaderSearchRows = 20

// ErrUnsupportedFile is returned by ReadFile for unknown extensions.
var ErrUnsupportedFile = errors.New("unsupported file type, expected .csv or .xlsx")

// Table is the tabular content of one file.
type Table struct {
	Headers []string
	Rows    []RawRow
	Issues  []Issue // batch-level issues, RowNumber 0
}

// ReadOptions controls header detection and column checks.
type ReadOptions struct {
	Fields              []FieldSpec // declared columns; empty disables column checks
	Sheet               string      // XLSX sheet name; the first sheet when empty
	MaxHeaderSearchRows int
}

// ReadFile dispatches on the file extension.
func ReadFile(name string, r io.Reader, opts ReadOptions) (Table, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r, opts)
	case ".csv", ".txt":
		return ReadCSV(r, opts)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
}

// ReadCSV reads a comma or semicolon separated file.
func ReadCSV(r io.Reader, opts ReadOptions) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(sanitizeUTF8(data), []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	// Blank lines are dropped by the csv reader, so keep each record's line
	// number for row positions.
	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{Issues: []Issue{batchError(fmt.Sprintf("invalid csv: %v", err))}}, nil
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return tableFromRecords(records, lines, opts), nil
}

// ReadXLSX reads one sheet of a workbook.
func ReadXLSX(r io.Reader, opts ReadOptions) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{Issues: []Issue{batchError(fmt.Sprintf("invalid xlsx: %v", err))}}, nil
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Table{Issues: []Issue{batchError("empty file")}}, nil
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return Table{Issues: []Issue{batchError(fmt.Sprintf("sheet %q not found", sheet))}}, nil
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return tableFromRecords(records, nil, opts), nil
}

// tableFromRecords builds a Table. lines holds the sheet line of each record;
// when nil, record i is on line i+1.
func tableFromRecords(records [][]string, lines []int, opts ReadOptions) Table {
	var t Table

	first := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			first = i
			break
		}
	}
	if first < 0 {
		t.Issues = append(t.Issues, batchError("empty file"))
		return t
	}

	hdr := findHeaderRow(records, opts)
	if hdr < 0 {
		hdr = first
	}
	t.Headers = make([]string, len(records[hdr]))
	for i, h := range records[hdr] {
		t.Headers[i] = CleanCell(h)
	}

	// Duplicate headers: only the first column of that name is read.
	use := make([]bool, len(t.Headers))
	seen := make(map[string]bool, len(t.Headers))
	for i, h := range t.Headers {
		key := headerKey(h)
		if key == "" {
			continue
		}
		if seen[key] {
			t.Issues = append(t.Issues, batchError(fmt.Sprintf("duplicate header %q", h)))
			continue
		}
		seen[key] = true
		use[i] = true
	}

	t.Issues = append(t.Issues, columnIssues(t.Headers, opts.Fields)...)

	for i := hdr + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRow(rec) {
			continue
		}
		cells := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if !use[j] {
				continue
			}
			v := ""
			if j < len(rec) {
				v = rec[j]
			}
			cells[h] = v
		}
		number := i + 1
		if lines != nil {
			number = lines[i]
		}
		t.Rows = append(t.Rows, NewRawRow(number, cells))
	}

	if len(t.Rows) == 0 {
		t.Issues = append(t.Issues, batchError("no data rows after header"))
	}
	return t
}

// findHeaderRow returns the first row that holds every required column,
// or -1 when none does within the search window.
func findHeaderRow(records [][]string, opts ReadOptions) int {
	var required []FieldSpec
	for _, f := range opts.Fields {
		if f.Required {
			required = append(required, f)
		}
	}
	if len(required) == 0 {
		return -1
	}

	maxRows := opts.MaxHeaderSearchRows
	if maxRows <= 0 {
		maxRows = DefaultMaxHeaderSearchRows
	}
	maxRows = min(maxRows, len(records))

	for i := 0; i < maxRows; i++ {
		idx := MakeHeaderIndex(records[i])
		if len(missingFields(idx, required)) == 0 {
			return i
		}
	}
	return -1
}

// columnIssues reports missing required columns and columns that are not imported.
func columnIssues(headers []string, fields []FieldSpec) []Issue {
	if len(fields) == 0 {
		return nil
	}
	var issues []Issue

	var required []FieldSpec
	known := make(map[string]bool)
	for _, f := range fields {
		if f.Required {
			required = append(required, f)
		}
		for _, n := range f.names() {
			known[headerKey(n)] = true
		}
	}
	if missing := missingFields(MakeHeaderIndex(headers), required); len(missing) > 0 {
		issues = append(issues, batchError("missing required columns: "+strings.Join(missing, ", ")))
	}

	for _, h := range headers {
		if h == "" || known[headerKey(h)] {
			continue
		}
		issues = append(issues, Issue{
			Message:  fmt.Sprintf("column %q is not imported", h),
			Severity: SeverityInfo,
		})
	}
	return issues
}

func missingFields(idx HeaderIndex, fields []FieldSpec) []string {
	var missing []string
	for _, f := range fields {
		found := false
		for _, n := range f.names() {
			if _, ok := idx[headerKey(n)]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

func batchError(msg string) Issue {
	return Issue{Message: msg, Severity: SeverityError}
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the first
// line, preferring ',' on a tie. Spreadsheet exports in Dutch locales use
// semicolons; "text (tab delimited)" exports use tabs.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, count := ',', bytes.Count(line, []byte{','})
	for _, d := range []byte{';', '\t'} {
		if n := bytes.Count(line, []byte{d}); n > count {
			best, count = rune(d), n
		}
	}
	return best
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
