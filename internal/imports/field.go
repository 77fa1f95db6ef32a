package imports

import "strings"

// FieldType represents the semantic type of an imported column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldDecimal
	FieldCode // single character, e.g. a sequence letter
	FieldEnum
	FieldBool
)

// FieldSpec defines validation rules for a single column.
type FieldSpec struct {
	Name       string              // Column header name (matched case-insensitively)
	Aliases    []string            // Alternative header names accepted for this column
	Type       FieldType           // Expected data type
	Required   bool                // Column must exist and the cell must be filled
	AllowEmpty bool                // If true, an empty cell is accepted even when Required
	EnumValues []string            // Valid values for FieldEnum
	Normalizer func(string) string // Optional transformation applied before conversion
}

// names returns the field name followed by its aliases.
func (f FieldSpec) names() []string {
	return append([]string{f.Name}, f.Aliases...)
}

// HeaderIndex maps normalized column names to their position in a header row.
type HeaderIndex map[string]int

// Locale describes the separators used in numeric cells.
type Locale struct {
	Name    string
	Decimal rune
	Group   rune
}

var (
	// LocaleNL is the default: "1.234,56".
	LocaleNL = Locale{Name: "nl", Decimal: ',', Group: '.'}
	// LocaleEN reads "1,234.56".
	LocaleEN = Locale{Name: "en", Decimal: '.', Group: ','}
)

// LocaleByName returns the locale for "nl" or "en". Unknown names report
// false with LocaleNL.
func LocaleByName(name string) (Locale, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LocaleNL.Name:
		return LocaleNL, true
	case LocaleEN.Name:
		return LocaleEN, true
	default:
		return LocaleNL, false
	}
}

// String returns a human-readable name for the field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldInt:
		return "integer"
	case FieldDecimal:
		return "decimal"
	case FieldCode:
		return "code"
	case FieldEnum:
		return "enum"
	case FieldBool:
		return "bool"
	default:
		return "value"
	}
}
