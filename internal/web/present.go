package web

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

// Toast auto-dismiss delays. Failures stay until dismissed.
const (
	toastSuccessDelay = 5 * time.Second
	toastWarningDelay = 10 * time.Second
)

// ToastKind is the visual style of a toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastWarning ToastKind = "warning"
	ToastError   ToastKind = "error"
)

// Toast is a transient notification. DismissAfter zero means the toast
// stays until the user closes it.
type Toast struct {
	Kind         ToastKind     `json:"kind"`
	Message      string        `json:"message"`
	DismissAfter time.Duration `json:"dismissAfterMs"`
}

// ToastFor summarizes a commit receipt.
func ToastFor(r imports.CommitReceipt) Toast {
	switch r.Status {
	case imports.StatusCompleted:
		return Toast{
			Kind:         ToastSuccess,
			Message:      fmt.Sprintf("Import completed: %d inserted, %d updated, %d unchanged", r.Inserted, r.Updated, r.Skipped),
			DismissAfter: toastSuccessDelay,
		}
	case imports.StatusPartiallyCompleted:
		return Toast{
			Kind: ToastWarning,
			Message: fmt.Sprintf("Import partially completed: %d inserted, %d updated, %d rows failed",
				r.Inserted, r.Updated, len(r.Failures)),
			DismissAfter: toastWarningDelay,
		}
	default:
		return Toast{Kind: ToastError, Message: "Import failed: " + imports.FormatReason(r.Reason)}
	}
}

// SeverityClass returns the CSS class for an issue severity.
func SeverityClass(s imports.Severity) string {
	switch s {
	case imports.SeverityError:
		return "issue-error"
	case imports.SeverityWarning:
		return "issue-warning"
	default:
		return "issue-info"
	}
}

// RowClass returns the CSS class for a previewed row.
func RowClass(r imports.RowView) string {
	switch {
	case !r.Valid:
		return "row-invalid"
	case r.Superseded > 0:
		return "row-superseded"
	case r.Action == imports.ActionInsert:
		return "row-insert"
	case r.Action == imports.ActionUpdate:
		return "row-update"
	default:
		return "row-skip"
	}
}

// ActionLabel returns the display text of a row's action.
func ActionLabel(r imports.RowView) string {
	switch {
	case !r.Valid:
		return "Invalid"
	case r.Superseded > 0:
		return fmt.Sprintf("Superseded by row %d", r.Superseded)
	case r.Action == imports.ActionInsert:
		return "New"
	case r.Action == imports.ActionUpdate:
		return "Update"
	default:
		return "Unchanged"
	}
}

// worstSeverity returns the highest severity among issues on column, and
// false when there are none. An empty column selects row-level issues.
func worstSeverity(issues []imports.Issue, column string) (imports.Severity, bool) {
	var (
		worst imports.Severity
		found bool
	)
	for _, is := range issues {
		if is.ColumnName != column {
			continue
		}
		if !found || is.Severity > worst {
			worst, found = is.Severity, true
		}
	}
	return worst, found
}
