package imports

import (
	"testing"

	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// ParseDecimal Tests
// ----------------------------------------------------------------------------

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		locale  Locale
		want    string
		wantErr bool
	}{
		// Dutch locale
		{name: "decimal comma", input: "12,50", locale: LocaleNL, want: "12.5"},
		{name: "integer", input: "42", locale: LocaleNL, want: "42"},
		{name: "negative", input: "-3,5", locale: LocaleNL, want: "-3.5"},
		{name: "thousands and decimal", input: "1.234,56", locale: LocaleNL, want: "1234.56"},
		{name: "multiple thousands groups", input: "1.234.567,89", locale: LocaleNL, want: "1234567.89"},
		{name: "lone thousands separator", input: "1.234", locale: LocaleNL, want: "1234"},
		{name: "dot used as decimal point", input: "12.50", locale: LocaleNL, want: "12.5"},
		{name: "euro sign and space", input: "\u20ac 12,50", locale: LocaleNL, want: "12.5"},
		{name: "space grouping", input: "1 234,5", locale: LocaleNL, want: "1234.5"},
		{name: "non-breaking space grouping", input: "1\u00a0234,5", locale: LocaleNL, want: "1234.5"},
		{name: "accounting negative", input: "(12,50)", locale: LocaleNL, want: "-12.5"},
		{name: "surrounding whitespace", input: "  7,25  ", locale: LocaleNL, want: "7.25"},

		// English locale
		{name: "en decimal point", input: "12.50", locale: LocaleEN, want: "12.5"},
		{name: "en thousands and decimal", input: "1,234.56", locale: LocaleEN, want: "1234.56"},
		{name: "en lone thousands separator", input: "1,234", locale: LocaleEN, want: "1234"},

		// Invalid
		{name: "empty", input: "", locale: LocaleNL, wantErr: true},
		{name: "text", input: "abc", locale: LocaleNL, wantErr: true},
		{name: "two decimal commas", input: "1,2,3", locale: LocaleNL, wantErr: true},
		{name: "ambiguous dots", input: "1.23.4", locale: LocaleNL, wantErr: true},
		{name: "trailing text", input: "12,50 stuks", locale: LocaleNL, wantErr: true},
		{name: "exponent", input: "1e5", locale: LocaleEN, wantErr: true},
		{name: "huge exponent", input: "1e100000000", locale: LocaleNL, wantErr: true},
		{name: "negative exponent", input: "2,5E-3", locale: LocaleNL, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.input, tt.locale)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDecimal(%q) = %s, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimal(%q) error = %v", tt.input, err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDecimal_ErrorMessage(t *testing.T) {
	_, err := ParseDecimal("twaalf", LocaleNL)
	if err == nil || err.Error() != "invalid decimal format" {
		t.Errorf("ParseDecimal() error = %v, want %q", err, "invalid decimal format")
	}
}

// ----------------------------------------------------------------------------
// ParseInt Tests
// ----------------------------------------------------------------------------

func TestParseInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		locale  Locale
		want    int64
		wantErr bool
	}{
		{name: "plain", input: "42", locale: LocaleNL, want: 42},
		{name: "negative", input: "-7", locale: LocaleNL, want: -7},
		{name: "explicit plus", input: "+5", locale: LocaleNL, want: 5},
		{name: "grouped thousands", input: "1.234", locale: LocaleNL, want: 1234},
		{name: "en grouped thousands", input: "12,345,678", locale: LocaleEN, want: 12345678},
		{name: "badly grouped", input: "12.5", locale: LocaleNL, wantErr: true},
		{name: "decimal comma", input: "12,5", locale: LocaleNL, wantErr: true},
		{name: "text", input: "abc", locale: LocaleNL, wantErr: true},
		{name: "empty", input: "", locale: LocaleNL, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInt(tt.input, tt.locale)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInt(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseInt(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseCode / ParseEnum / ParseBool Tests
// ----------------------------------------------------------------------------

func TestParseCode(t *testing.T) {
	tests := []struct {
		input   string
		want    rune
		wantErr bool
	}{
		{input: "A", want: 'A'},
		{input: "a", want: 'A'},
		{input: " b ", want: 'B'},
		{input: "7", want: '7'},
		{input: "AB", wantErr: true},
		{input: "", wantErr: true},
		{input: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseCode(%q) = %q, want error", tt.input, got)
				} else if err.Error() != "invalid code, expected single character" {
					t.Errorf("ParseCode(%q) error = %q", tt.input, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseCode(%q) = %q, %v, want %q", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestParseEnum(t *testing.T) {
	allowed := []string{"stuk", "m2"}

	got, err := ParseEnum("STUK", allowed)
	if err != nil || got != "stuk" {
		t.Errorf("ParseEnum(STUK) = %q, %v, want %q", got, err, "stuk")
	}

	_, err = ParseEnum("kg", allowed)
	if err == nil || err.Error() != "value must be one of: stuk, m2" {
		t.Errorf("ParseEnum(kg) error = %v", err)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{input: "ja", want: true},
		{input: "Nee", want: false},
		{input: "TRUE", want: true},
		{input: "0", want: false},
		{input: "y", want: true},
		{input: "misschien", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBool(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBool(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell / MakeHeaderIndex Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "  value  ", want: "value"},
		{input: `="0012"`, want: "0012"},
		{input: "=42", want: "42"},
		{input: `"quoted"`, want: "quoted"},
		{input: "'single'", want: "single"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Naam", " naam ", "", "Groep"})

	if len(idx) != 2 {
		t.Fatalf("len(idx) = %d, want 2", len(idx))
	}
	if idx["naam"] != 0 {
		t.Errorf("idx[naam] = %d, want 0 (first occurrence)", idx["naam"])
	}
	if idx["groep"] != 3 {
		t.Errorf("idx[groep] = %d, want 3", idx["groep"])
	}
}

func TestLocaleByName(t *testing.T) {
	tests := []struct {
		name   string
		want   Locale
		wantOK bool
	}{
		{"nl", LocaleNL, true},
		{" EN ", LocaleEN, true},
		{"de", LocaleNL, false},
	}
	for _, tt := range tests {
		got, ok := LocaleByName(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LocaleByName(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
