package imports

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is the blocking level of a validation issue.
// Levels are ordered: Info < Warning < Error.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch strings.ToLower(name) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Issue is a single validation finding.
// RowNumber 0 marks a batch-level issue; an empty ColumnName marks a row-level issue.
type Issue struct {
	RowNumber  int      `json:"rowNumber"`
	ColumnName string   `json:"columnName,omitempty"`
	Message    string   `json:"message"`
	Severity   Severity `json:"severity"`
	RawValue   *string  `json:"rawValue,omitempty"` // Offending cell content, nil when the cell was absent
}

func (i Issue) String() string {
	var b strings.Builder
	if i.RowNumber > 0 {
		fmt.Fprintf(&b, "row %d: ", i.RowNumber)
	}
	if i.ColumnName != "" {
		fmt.Fprintf(&b, "%s: ", i.ColumnName)
	}
	b.WriteString(i.Message)
	if i.RawValue != nil {
		fmt.Fprintf(&b, " (%q)", *i.RawValue)
	}
	return b.String()
}

// RawRow is one row read from a tabular source.
// Cells are addressed by column name, case-insensitively.
type RawRow struct {
	number  int
	cells   map[string]string
	columns []string
}

// NewRawRow creates a row at the given 1-based sheet position.
// The cells map is copied; later changes to it do not affect the row.
func NewRawRow(number int, cells map[string]string) RawRow {
	r := RawRow{
		number: number,
		cells:  make(map[string]string, len(cells)),
	}
	for col, v := range cells {
		key := headerKey(col)
		if _, dup := r.cells[key]; !dup {
			r.columns = append(r.columns, col)
		}
		r.cells[key] = v
	}
	return r
}

// RowNumber returns the 1-based sheet position of the row.
func (r RawRow) RowNumber() int { return r.number }

// Cell returns the raw cell for a column and whether the column is present.
func (r RawRow) Cell(column string) (string, bool) {
	v, ok := r.cells[headerKey(column)]
	return v, ok
}

// ParsedRow is the validator's output for one RawRow.
// Parsed is set if and only if no issue has Error severity.
type ParsedRow[T any] struct {
	RowNumber int     `json:"rowNumber"`
	Parsed    *T      `json:"parsed,omitempty"`
	Issues    []Issue `json:"issues,omitempty"`
}

// IsValid reports whether no issue on the row has Error severity.
func (p ParsedRow[T]) IsValid() bool {
	for _, is := range p.Issues {
		if is.Severity == SeverityError {
			return false
		}
	}
	return true
}

// HasWarnings reports whether at least one issue has Warning severity.
func (p ParsedRow[T]) HasWarnings() bool {
	for _, is := range p.Issues {
		if is.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Action is the reconciler's verdict for a row.
type Action string

const (
	ActionNone   Action = ""       // invalid rows
	ActionInsert Action = "insert" // no existing record with this natural key
	ActionUpdate Action = "update" // existing record differs in a comparable field
	ActionSkip   Action = "skip"   // existing record is equal, or the row was superseded
)

// ClassifiedRow is a parsed row together with its reconciliation verdict.
type ClassifiedRow[T any] struct {
	ParsedRow[T]
	Action     Action            `json:"action,omitempty"`
	NaturalKey string            `json:"naturalKey,omitempty"`
	Changed    []string          `json:"changed,omitempty"`    // Comparable columns that differ (updates only)
	Version    int64             `json:"version,omitempty"`    // Version of the existing record seen at preview time, 0 if none
	Superseded int               `json:"superseded,omitempty"` // Row number of the later row with the same key
	Raw        map[string]string `json:"raw,omitempty"`        // Source cells, kept for display
}

// Summary holds batch counters derived from the classified rows.
type Summary struct {
	TotalRows    int `json:"totalRows"`
	ValidRows    int `json:"validRows"`
	InvalidRows  int `json:"invalidRows"`
	WarningRows  int `json:"warningRows"`
	InsertCount  int `json:"insertCount"`
	UpdateCount  int `json:"updateCount"`
	SkippedCount int `json:"skippedCount"`
}

// ImportResult is the preview of one import batch.
// Rows are kept in source order.
type ImportResult[T any] struct {
	SessionID   string             `json:"sessionId"`
	Kind        string             `json:"kind"`
	Summary     Summary            `json:"summary"`
	Rows        []ClassifiedRow[T] `json:"rows"`
	BatchIssues []Issue            `json:"batchIssues,omitempty"`
}

// Blocked reports whether a batch issue prevents the result from being committed.
func (r *ImportResult[T]) Blocked() bool {
	for _, is := range r.BatchIssues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CommitStatus is the outcome of a commit attempt.
type CommitStatus string

const (
	StatusCompleted          CommitStatus = "completed"
	StatusPartiallyCompleted CommitStatus = "partially_completed"
	StatusFailed             CommitStatus = "failed"
)

// RowFailure describes a row that could not be written.
type RowFailure struct {
	RowNumber  int    `json:"rowNumber"`
	NaturalKey string `json:"naturalKey"`
	Reason     string `json:"reason"`
}

// CommitReceipt is produced exactly once per commit attempt.
type CommitReceipt struct {
	SessionID string       `json:"sessionId"`
	Kind      string       `json:"kind"`
	Inserted  int          `json:"inserted"`
	Updated   int          `json:"updated"`
	Skipped   int          `json:"skipped"`
	Status    CommitStatus `json:"status"`
	Reason    string       `json:"reason,omitempty"`
	Failures  []RowFailure `json:"failures,omitempty"`
}

func strPtr(s string) *string { return &s }
