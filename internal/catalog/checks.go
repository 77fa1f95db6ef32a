package catalog

import (
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/shopspring/decimal"
)

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// nonNegative reports an Error when a decimal field is below zero.
func nonNegative(v imports.Values, r *imports.Reporter, name string) {
	if !v.OK(name) || !v.Has(name) {
		return
	}
	if v.Decimal(name).IsNegative() {
		r.Error(name, v.Raw(name), "must not be negative")
	}
}

// upper normalizes codes that are compared case-insensitively.
func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// differ collects the names of changed columns.
type differ []string

func (d *differ) text(col, a, b string) {
	if a != b {
		*d = append(*d, col)
	}
}

func (d *differ) num(col string, a, b int64) {
	if a != b {
		*d = append(*d, col)
	}
}

func (d *differ) dec(col string, a, b decimal.Decimal) {
	if !a.Equal(b) {
		*d = append(*d, col)
	}
}

func (d *differ) flag(col string, a, b bool) {
	if a != b {
		*d = append(*d, col)
	}
}
