package imports

// convert.go provides cell conversion for spreadsheet data.
//
// These functions handle the messy reality of user-provided sheets:
//   - Locale-specific decimal and thousands separators ("12,50" vs "12.50")
//   - Currency symbols and accounting negatives "(12,50)"
//   - Excel formula prefixes (="value") and stray quotes
//   - Various boolean spellings (ja/nee, yes/no, 1/0)
//
// Every Parse* function returns an error whose message is shown to the user
// as the issue text, so messages are short and lowercase.

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// numericRegex validates a number after separator normalization.
// Exponents are rejected: spreadsheet decimals never need them, and a
// large one makes every later comparison rescale to a huge integer.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

var (
	errInvalidDecimal = errors.New("invalid decimal format")
	errInvalidInteger = errors.New("invalid integer format")
	errInvalidCode    = errors.New("invalid code, expected single character")
	errInvalidBool    = errors.New("must be ja/nee, yes/no, true/false, or 1/0")
)

// currencyReplacer strips currency symbols and spacing used as grouping.
var currencyReplacer = strings.NewReplacer(
	"\u20ac", "", // Euro
	"$", "",
	"\u00a3", "", // Pound
	"EUR", "",
	" ", "",
	"\u00a0", "", // Non-breaking space
	"'", "",
)

// ParseDecimal converts a cell to an exact decimal using the locale's separators.
//
// When both separators appear, the rightmost one is the decimal mark. A lone
// group separator followed only by 3-digit groups ("1.234") is read as a
// thousands separator; otherwise it is read as a decimal point ("12.50").
func ParseDecimal(s string, loc Locale) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errInvalidDecimal
	}

	// Accounting format "(12,50)"
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = currencyReplacer.Replace(s)
	s = normalizeSeparators(s, loc)

	if !numericRegex.MatchString(s) {
		return decimal.Zero, errInvalidDecimal
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errInvalidDecimal
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseInt converts a cell to an integer. Thousands separators of the
// locale are accepted when they group digits by three.
func ParseInt(s string, loc Locale) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errInvalidInteger
	}

	sign := ""
	if s[0] == '-' || s[0] == '+' {
		sign, s = s[:1], s[1:]
	}

	if strings.ContainsRune(s, loc.Group) {
		if !groupedThousands(s, loc.Group) {
			return 0, errInvalidInteger
		}
		s = strings.ReplaceAll(s, string(loc.Group), "")
	}

	n, err := strconv.ParseInt(sign+s, 10, 64)
	if err != nil {
		return 0, errInvalidInteger
	}
	return n, nil
}

// ParseCode converts a cell to a single upper-case character.
func ParseCode(s string) (rune, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) != 1 {
		return 0, errInvalidCode
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return 0, errInvalidCode
	}
	return unicode.ToUpper(r), nil
}

// ParseEnum matches a cell case-insensitively against the allowed values
// and returns the canonical spelling.
func ParseEnum(s string, allowed []string) (string, error) {
	s = strings.TrimSpace(s)
	for _, v := range allowed {
		if strings.EqualFold(v, s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("value must be one of: %s", strings.Join(allowed, ", "))
}

// ParseBool accepts Dutch and English spellings.
func ParseBool(s string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "ja", "j", "1", "waar":
		return true, nil
	case "false", "f", "no", "n", "nee", "0", "onwaar":
		return false, nil
	default:
		return false, errInvalidBool
	}
}

// normalizeSeparators rewrites a locale-formatted number into Go syntax.
// Ambiguous input is returned in a form that fails numericRegex.
func normalizeSeparators(s string, loc Locale) string {
	dec := string(loc.Decimal)
	grp := string(loc.Group)
	di := strings.LastIndex(s, dec)
	gi := strings.LastIndex(s, grp)

	switch {
	case di >= 0 && gi >= 0:
		if di > gi {
			s = strings.ReplaceAll(s, grp, "")
			return strings.Replace(s, dec, ".", 1)
		}
		// Separators are swapped relative to the locale; the rightmost still wins.
		s = strings.ReplaceAll(s, dec, "")
		return strings.Replace(s, grp, ".", 1)
	case di >= 0:
		if strings.Count(s, dec) > 1 {
			return ""
		}
		return strings.Replace(s, dec, ".", 1)
	case gi >= 0:
		if groupedThousands(strings.TrimLeft(s, "+-"), loc.Group) {
			return strings.ReplaceAll(s, grp, "")
		}
		if strings.Count(s, grp) == 1 {
			return strings.Replace(s, grp, ".", 1)
		}
		return ""
	default:
		return s
	}
}

// groupedThousands reports whether s looks like "1.234" or "12.345.678".
func groupedThousands(s string, group rune) bool {
	parts := strings.Split(s, string(group))
	if len(parts) < 2 {
		return false
	}
	if len(parts[0]) == 0 || len(parts[0]) > 3 || !allDigits(parts[0]) {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 || !allDigits(p) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are normalized for case-insensitive matching; the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := headerKey(h)
		if key == "" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

// headerKey normalizes a column name for lookups.
func headerKey(s string) string {
	return strings.ToLower(CleanCell(s))
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
