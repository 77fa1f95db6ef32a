package imports

// validation.go turns raw rows into parsed records.
//
// Validation happens at three levels, and never stops at the first problem:
//  1. Field level: each FieldSpec is looked up, checked for presence and
//     converted according to its FieldType.
//  2. Rule level: `validate` struct tags on the built record (email, length,
//     bounds) are evaluated with go-playground/validator. Columns that already
//     failed conversion are not reported twice.
//  3. Cross-field level: the definition's Check function, which must only
//     inspect fields whose conversion succeeded (see Values.OK).
//
// The validator is pure: reference data is passed in as a read-only snapshot.

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Values holds the converted cells of one row, keyed by FieldSpec.Name.
type Values struct {
	raw    map[string]string
	vals   map[string]any
	failed map[string]bool
}

func newValues() Values {
	return Values{
		raw:    make(map[string]string),
		vals:   make(map[string]any),
		failed: make(map[string]bool),
	}
}

// Has reports whether the field was present, non-empty and converted.
func (v Values) Has(name string) bool {
	_, ok := v.vals[name]
	return ok
}

// OK reports whether none of the named fields failed field-level checks.
// Cross-field checks use it to decide whether they may run.
func (v Values) OK(names ...string) bool {
	for _, n := range names {
		if v.failed[n] {
			return false
		}
	}
	return true
}

// Raw returns the cleaned cell text of a field.
func (v Values) Raw(name string) string { return v.raw[name] }

// Text returns a text or enum field, or "".
func (v Values) Text(name string) string {
	s, _ := v.vals[name].(string)
	return s
}

// Int returns an integer field, or 0.
func (v Values) Int(name string) int64 {
	n, _ := v.vals[name].(int64)
	return n
}

// Decimal returns a decimal field, or zero.
func (v Values) Decimal(name string) decimal.Decimal {
	d, ok := v.vals[name].(decimal.Decimal)
	if !ok {
		return decimal.Zero
	}
	return d
}

// Code returns a single-character field, or 0.
func (v Values) Code(name string) rune {
	r, _ := v.vals[name].(rune)
	return r
}

// Bool returns a boolean field, or def when the cell was empty or absent.
func (v Values) Bool(name string, def bool) bool {
	b, ok := v.vals[name].(bool)
	if !ok {
		return def
	}
	return b
}

// Reporter collects the issues of one row.
type Reporter struct {
	row    int
	issues []Issue
}

// Error records a blocking issue.
func (r *Reporter) Error(column, raw, msg string) {
	r.add(SeverityError, column, strPtr(raw), msg)
}

// Warn records a non-blocking issue.
func (r *Reporter) Warn(column, raw, msg string) {
	r.add(SeverityWarning, column, strPtr(raw), msg)
}

// Info records an informational note.
func (r *Reporter) Info(column, msg string) {
	r.add(SeverityInfo, column, nil, msg)
}

func (r *Reporter) add(sev Severity, column string, raw *string, msg string) {
	r.issues = append(r.issues, Issue{
		RowNumber:  r.row,
		ColumnName: column,
		Message:    msg,
		Severity:   sev,
		RawValue:   raw,
	})
}

// References is a read-only view of reference data (known groups, types).
type References interface {
	Contains(group, key string) bool
}

// RefSet is a map-backed References: group -> set of keys.
type RefSet map[string]map[string]struct{}

// Add registers a key in a reference group.
func (s RefSet) Add(group, key string) {
	if s[group] == nil {
		s[group] = make(map[string]struct{})
	}
	s[group][strings.ToLower(key)] = struct{}{}
}

// Contains reports whether the key is known in the group (case-insensitive).
func (s RefSet) Contains(group, key string) bool {
	_, ok := s[group][strings.ToLower(key)]
	return ok
}

// Definition describes how one entity kind is imported.
type Definition[T any] struct {
	Kind   string // Unique identifier: "stock_items"
	Group  string // Display group: "Stock"
	Label  string // Display name: "Stock items"
	Target string // Store table the kind is committed to (defaults to Kind)
	Fields []FieldSpec

	// Build assembles a record from converted values. It runs even when some
	// fields failed, so rule and cross-field checks can still report issues.
	Build func(v Values) T

	// Check runs cross-field checks. It must consult v.OK before inspecting a field.
	Check func(v Values, rec *T, refs References, r *Reporter)

	// Key returns the natural key identifying the record.
	Key func(rec T) string

	// Diff returns the comparable columns whose values differ.
	Diff func(incoming, existing T) []string
}

// TargetName returns the store table of the kind.
func (d *Definition[T]) TargetName() string {
	if d.Target != "" {
		return d.Target
	}
	return d.Kind
}

// Columns returns the declared column names in order.
func (d *Definition[T]) Columns() []string {
	cols := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Cells returns a row's cells keyed by the declared column names, so a
// header written as an alias or in another letter case still lands under
// its field. Columns that match no field keep their own header.
func (d *Definition[T]) Cells(row RawRow) map[string]string {
	out := make(map[string]string, len(row.columns))
	known := make(map[string]bool)
	for _, f := range d.Fields {
		for _, n := range f.names() {
			known[headerKey(n)] = true
		}
		if v, ok := lookupCell(row, f); ok {
			out[f.Name] = v
		}
	}
	for _, col := range row.columns {
		if !known[headerKey(col)] {
			out[col] = row.cells[headerKey(col)]
		}
	}
	return out
}

// RequiredColumns returns the names of required columns.
func (d *Definition[T]) RequiredColumns() []string {
	var cols []string
	for _, f := range d.Fields {
		if f.Required {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// Validator validates raw rows against a Definition.
// It holds no mutable state and is safe for concurrent use.
type Validator[T any] struct {
	def    *Definition[T]
	locale Locale
	refs   References
	rules  *validator.Validate
}

// NewValidator creates a validator. A nil refs is treated as empty.
func NewValidator[T any](def *Definition[T], locale Locale, refs References) *Validator[T] {
	if refs == nil {
		refs = RefSet{}
	}
	return &Validator[T]{
		def:    def,
		locale: locale,
		refs:   refs,
		rules:  newRuleValidator(),
	}
}

// newRuleValidator reports struct fields by their `col` tag so rule failures
// carry the spreadsheet column name.
func newRuleValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("col")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate validates a single row and returns every issue found.
func (v *Validator[T]) Validate(row RawRow) ParsedRow[T] {
	rep := &Reporter{row: row.RowNumber()}
	vals := newValues()

	for _, spec := range v.def.Fields {
		raw, ok := lookupCell(row, spec)
		if !ok {
			if spec.Required {
				vals.failed[spec.Name] = true
				rep.add(SeverityError, spec.Name, nil, fmt.Sprintf("missing column %s", spec.Name))
			}
			continue
		}

		raw = CleanCell(raw)
		vals.raw[spec.Name] = raw

		if raw == "" {
			if spec.Required && !spec.AllowEmpty {
				vals.failed[spec.Name] = true
				rep.Error(spec.Name, raw, "required field is empty")
			}
			continue
		}

		if spec.Normalizer != nil {
			raw = spec.Normalizer(raw)
		}

		val, err := v.convert(raw, spec)
		if err != nil {
			vals.failed[spec.Name] = true
			rep.Error(spec.Name, raw, err.Error())
			continue
		}
		vals.vals[spec.Name] = val
	}

	rec := v.def.Build(vals)
	v.checkRules(&rec, vals, rep)
	if v.def.Check != nil {
		v.def.Check(vals, &rec, v.refs, rep)
	}

	parsed := ParsedRow[T]{RowNumber: row.RowNumber(), Issues: rep.issues}
	if parsed.IsValid() {
		parsed.Parsed = &rec
	}
	return parsed
}

// convert converts a cleaned, non-empty cell according to its field type.
func (v *Validator[T]) convert(raw string, spec FieldSpec) (any, error) {
	switch spec.Type {
	case FieldInt:
		return ParseInt(raw, v.locale)
	case FieldDecimal:
		return ParseDecimal(raw, v.locale)
	case FieldCode:
		return ParseCode(raw)
	case FieldEnum:
		return ParseEnum(raw, spec.EnumValues)
	case FieldBool:
		return ParseBool(raw)
	default:
		return raw, nil
	}
}

// checkRules evaluates `validate` tags on the built record.
func (v *Validator[T]) checkRules(rec *T, vals Values, rep *Reporter) {
	err := v.rules.Struct(rec)
	if err == nil {
		return
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return // not a struct; nothing to check
	}
	for _, fe := range fieldErrs {
		col := fe.Field()
		if vals.failed[col] {
			continue
		}
		rep.Error(col, vals.Raw(col), ruleMessage(fe))
	}
}

// ruleMessage renders a validator failure as issue text.
func ruleMessage(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "required field is empty"
	case "email":
		return "invalid email address"
	case "max", "lte":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min", "gte":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// lookupCell finds a field's cell by name or alias.
func lookupCell(row RawRow, spec FieldSpec) (string, bool) {
	for _, name := range spec.names() {
		if raw, ok := row.Cell(name); ok {
			return raw, true
		}
	}
	return "", false
}

// InRange reports an Error when a decimal field falls outside [lo, hi].
// It does nothing when the field failed conversion or was left empty.
func InRange(v Values, r *Reporter, name string, lo, hi decimal.Decimal) {
	if !v.OK(name) || !v.Has(name) {
		return
	}
	d := v.Decimal(name)
	if d.LessThan(lo) || d.GreaterThan(hi) {
		r.Error(name, v.Raw(name), fmt.Sprintf("out of range, expected %s to %s", lo.String(), hi.String()))
	}
}

// FitNumeric makes a decimal field fit a numeric(precision, scale) column.
// Extra decimals are rounded away in dst with a Warning, so the stored value
// equals the previewed one. Too many digits before the decimal mark is an Error.
func FitNumeric(v Values, r *Reporter, name string, dst *decimal.Decimal, precision, scale int32) {
	if !v.OK(name) || !v.Has(name) {
		return
	}
	rounded := dst.Round(scale)
	if rounded.Abs().GreaterThanOrEqual(decimal.New(1, precision-scale)) {
		r.Error(name, v.Raw(name), fmt.Sprintf("too large, at most %d digits before the decimal mark", precision-scale))
		return
	}
	if !rounded.Equal(*dst) {
		r.Warn(name, v.Raw(name), fmt.Sprintf("rounded to %s", rounded.StringFixed(scale)))
		*dst = rounded
	}
}

// Resolves reports a Warning when a field's value is not a known reference.
// Unresolved references can be fixed later, so they never block the row.
func Resolves(v Values, r *Reporter, refs References, name, group string) {
	if !v.OK(name) || !v.Has(name) {
		return
	}
	key := v.Raw(name)
	switch x := v.vals[name].(type) {
	case int64:
		key = strconv.FormatInt(x, 10)
	case string:
		key = x
	}
	if !refs.Contains(group, key) {
		r.Warn(name, key, fmt.Sprintf("unknown %s %q", strings.ReplaceAll(group, "_", " "), key))
	}
}
