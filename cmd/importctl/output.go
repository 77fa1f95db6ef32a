package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printView writes the summary, batch issues and row issues of a preview.
func printView(w io.Writer, v *imports.PreviewView) {
	s := v.Summary
	fmt.Fprintf(w, "%s: %d rows, %d valid, %d invalid, %d with warnings\n",
		v.Label, s.TotalRows, s.ValidRows, s.InvalidRows, s.WarningRows)
	fmt.Fprintf(w, "  insert %d, update %d, unchanged %d\n", s.InsertCount, s.UpdateCount, s.SkippedCount)

	for _, is := range v.BatchIssues {
		fmt.Fprintf(w, "  [%s] %s\n", is.Severity, is)
	}
	for _, r := range v.Rows {
		for _, is := range r.Issues {
			fmt.Fprintf(w, "  [%s] %s\n", is.Severity, is)
		}
	}
	if v.Blocked {
		fmt.Fprintln(w, "  blocked: fix the file errors above before committing")
	}
	fmt.Fprintf(w, "session %s\n", v.SessionID)
}

func printReceipt(w io.Writer, r imports.CommitReceipt) {
	fmt.Fprintf(w, "%s: %d inserted, %d updated, %d unchanged\n", r.Status, r.Inserted, r.Updated, r.Skipped)
	if r.Reason != "" {
		fmt.Fprintf(w, "  %s\n", imports.FormatReason(r.Reason))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  row %d (%s): %s\n", f.RowNumber, f.NaturalKey, f.Reason)
	}
}
