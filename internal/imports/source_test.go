package imports

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func testReadOptions() ReadOptions {
	return ReadOptions{Fields: testDefinition().Fields}
}

func findBatchIssue(issues []Issue, message string) (Issue, bool) {
	for _, is := range issues {
		if is.Message == message {
			return is, true
		}
	}
	return Issue{}, false
}

func TestReadCSV(t *testing.T) {
	data := "\ufeffCode;Naam;Volgnummer;Prijs\n" +
		"X-1;Wit;A;12,50\n" +
		"\n" +
		"X-2;Zwart;B\n"

	tbl, err := ReadCSV(strings.NewReader(data), testReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(tbl.Issues) != 0 {
		t.Errorf("Issues = %v, want none", tbl.Issues)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(tbl.Rows))
	}
	if tbl.Headers[0] != "Code" {
		t.Errorf("Headers[0] = %q, want BOM stripped", tbl.Headers[0])
	}

	first := tbl.Rows[0]
	if first.RowNumber() != 2 {
		t.Errorf("first RowNumber = %d, want 2", first.RowNumber())
	}
	if v, _ := first.Cell("prijs"); v != "12,50" {
		t.Errorf("Cell(prijs) = %q, want 12,50", v)
	}

	// Empty line 3 is skipped but still counts for row numbers.
	second := tbl.Rows[1]
	if second.RowNumber() != 4 {
		t.Errorf("second RowNumber = %d, want 4", second.RowNumber())
	}
	if v, ok := second.Cell("Prijs"); !ok || v != "" {
		t.Errorf("short row Cell(Prijs) = %q, %v, want padded empty cell", v, ok)
	}
}

func TestReadCSV_HeaderBelowTitle(t *testing.T) {
	data := "Prijslijst 2024,,,\n" +
		",,,\n" +
		"Code,Naam,Volgnummer,Prijs\n" +
		"X-1,Wit,A,3\n"

	tbl, err := ReadCSV(strings.NewReader(data), testReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1", len(tbl.Rows))
	}
	if tbl.Rows[0].RowNumber() != 4 {
		t.Errorf("RowNumber = %d, want 4", tbl.Rows[0].RowNumber())
	}
}

func TestReadCSV_BatchIssues(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		message  string
		severity Severity
	}{
		{
			name:     "empty file",
			data:     "",
			message:  "empty file",
			severity: SeverityError,
		},
		{
			name:     "header only",
			data:     "Code,Naam,Volgnummer,Prijs\n",
			message:  "no data rows after header",
			severity: SeverityError,
		},
		{
			name:     "missing required column",
			data:     "Code,Naam,Volgnummer\nX-1,Wit,A\n",
			message:  "missing required columns: Prijs",
			severity: SeverityError,
		},
		{
			name:     "duplicate header",
			data:     "Code,Naam,Volgnummer,Prijs,naam\nX-1,Wit,A,3,Zwart\n",
			message:  `duplicate header "naam"`,
			severity: SeverityError,
		},
		{
			name:     "unknown column",
			data:     "Code,Naam,Volgnummer,Prijs,Opmerking\nX-1,Wit,A,3,test\n",
			message:  `column "Opmerking" is not imported`,
			severity: SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadCSV(strings.NewReader(tt.data), testReadOptions())
			if err != nil {
				t.Fatalf("ReadCSV() error = %v", err)
			}
			is, ok := findBatchIssue(tbl.Issues, tt.message)
			if !ok {
				t.Fatalf("Issues = %v, want %q", tbl.Issues, tt.message)
			}
			if is.Severity != tt.severity {
				t.Errorf("Severity = %s, want %s", is.Severity, tt.severity)
			}
			if is.RowNumber != 0 {
				t.Errorf("RowNumber = %d, want 0 for batch issue", is.RowNumber)
			}
		})
	}
}

func TestReadCSV_DuplicateHeaderKeepsFirstColumn(t *testing.T) {
	data := "Code,Naam,Volgnummer,Prijs,Naam\nX-1,Wit,A,3,Zwart\n"

	tbl, err := ReadCSV(strings.NewReader(data), testReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if v, _ := tbl.Rows[0].Cell("Naam"); v != "Wit" {
		t.Errorf("Cell(Naam) = %q, want Wit", v)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Code", "Naam", "Volgnummer", "Prijs"},
		{"X-1", "Wit", "A", "12,50"},
		{"X-2", "Zwart", "B", "3"},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	tbl, err := ReadFile("prijzen.xlsx", &buf, testReadOptions())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(tbl.Issues) != 0 {
		t.Errorf("Issues = %v, want none", tbl.Issues)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(tbl.Rows))
	}
	if v, _ := tbl.Rows[1].Cell("Naam"); v != "Zwart" {
		t.Errorf("Cell(Naam) = %q, want Zwart", v)
	}
	if tbl.Rows[1].RowNumber() != 3 {
		t.Errorf("RowNumber = %d, want 3", tbl.Rows[1].RowNumber())
	}
}

func TestReadXLSX_Invalid(t *testing.T) {
	tbl, err := ReadXLSX(strings.NewReader("not a workbook"), testReadOptions())
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if len(tbl.Issues) != 1 || !strings.HasPrefix(tbl.Issues[0].Message, "invalid xlsx") {
		t.Errorf("Issues = %v, want invalid xlsx", tbl.Issues)
	}
}

func TestReadFile_Unsupported(t *testing.T) {
	_, err := ReadFile("data.pdf", strings.NewReader(""), ReadOptions{})
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("ReadFile() error = %v, want ErrUnsupportedFile", err)
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		data string
		want rune
	}{
		{data: "a;b;c\n1,5;2;3", want: ';'},
		{data: "a,b,c\n1;2;3", want: ','},
		{data: "single", want: ','},
		{data: "a\tb\tc\n1,5\t2\t3", want: '\t'},
		{data: "Naam\tOmschrijving, lang\tPrijs\n", want: '\t'},
		{data: "a;b\tc", want: ';'},
	}
	for _, tt := range tests {
		if got := sniffDelimiter([]byte(tt.data)); got != tt.want {
			t.Errorf("sniffDelimiter(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestReadCSV_TabDelimited(t *testing.T) {
	data := "Code\tNaam\tVolgnummer\tPrijs\nX-1\tWit, mat\tA\t12,50\n"
	tbl, err := ReadCSV(strings.NewReader(data), testReadOptions())
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("got %d rows, want 1 (issues %v)", len(tbl.Rows), tbl.Issues)
	}
	if got, _ := tbl.Rows[0].Cell("Naam"); got != "Wit, mat" {
		t.Errorf("Cell(Naam) = %q, want %q", got, "Wit, mat")
	}
	if got, _ := tbl.Rows[0].Cell("Prijs"); got != "12,50" {
		t.Errorf("Cell(Prijs) = %q, want %q", got, "12,50")
	}
}

func TestSanitizeUTF8(t *testing.T) {
	got := sanitizeUTF8([]byte("Caf\xe9"))
	if want := "Caf\uFFFD"; string(got) != want {
		t.Errorf("sanitizeUTF8() = %q, want %q", got, want)
	}
}
