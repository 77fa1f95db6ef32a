package web

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

// html writes markup and remembers the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// PreviewPage renders a preview as a standalone page: summary, batch
// issues, the row table and a commit form.
func PreviewPage(v *imports.PreviewView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="nl"><head><meta charset="utf-8"><title>`)
		h.text(v.Label + " preview")
		h.raw(`</title><link rel="stylesheet" href="/static/preview.css"></head><body>`)
		h.raw(`<main class="preview" data-session="`)
		h.text(v.SessionID)
		h.raw(`"><h1>`)
		h.text(v.Label)
		h.raw(`</h1>`)
		if h.err != nil {
			return h.err
		}
		if err := SummaryView(v.Summary).Render(ctx, w); err != nil {
			return err
		}
		if err := IssueList(v.BatchIssues).Render(ctx, w); err != nil {
			return err
		}
		if err := RowTable(v).Render(ctx, w); err != nil {
			return err
		}

		h.raw(`<div id="toast"></div>`)
		if v.Committable() {
			h.rawf(`<form method="post" action="/api/imports/%s/sessions/%s/commit" data-toast-target="#toast">`,
				templ.EscapeString(v.Kind), templ.EscapeString(v.SessionID))
			h.raw(`<button type="submit" class="btn-commit">Commit</button></form>`)
		} else if v.Blocked {
			h.raw(`<p class="blocked">Fix the file errors above and upload the file again.</p>`)
		} else {
			h.raw(`<p class="nothing">Nothing to import: every row is unchanged or invalid.</p>`)
		}
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// LoginPage asks for the API key and returns to next afterwards.
func LoginPage(next string, failed bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="nl"><head><meta charset="utf-8"><title>Sign in</title>`)
		h.raw(`<link rel="stylesheet" href="/static/preview.css"></head><body><main class="login">`)
		if failed {
			h.raw(`<div class="alert alert-error" role="alert">Invalid API key.</div>`)
		}
		h.raw(`<form method="post" action="/login"><input type="hidden" name="next" value="`)
		h.text(next)
		h.raw(`"><label>API key <input type="password" name="key" autocomplete="off" required></label>`)
		h.raw(`<button type="submit">Sign in</button></form></main></body></html>`)
		return h.err
	})
}

// SummaryView renders the preview counts.
func SummaryView(s imports.Summary) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<dl class="summary">`)
		for _, item := range []struct {
			label string
			n     int
		}{
			{"Rows", s.TotalRows},
			{"Valid", s.ValidRows},
			{"Invalid", s.InvalidRows},
			{"With warnings", s.WarningRows},
			{"New", s.InsertCount},
			{"Updated", s.UpdateCount},
			{"Unchanged", s.SkippedCount},
		} {
			h.raw(`<dt>`)
			h.text(item.label)
			h.raw(`</dt><dd>`)
			h.raw(strconv.Itoa(item.n))
			h.raw(`</dd>`)
		}
		h.raw(`</dl>`)
		return h.err
	})
}

// IssueList renders issues as a list. Nothing is written for no issues.
func IssueList(issues []imports.Issue) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(issues) == 0 {
			return nil
		}
		h := &html{w: w}
		h.raw(`<ul class="issues">`)
		for _, is := range issues {
			h.rawf(`<li class="%s">`, SeverityClass(is.Severity))
			h.text(is.String())
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
		return h.err
	})
}

// RowTable renders the previewed rows with their raw cells. Cells with
// issues carry the severity class and the messages as a title.
func RowTable(v *imports.PreviewView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<table class="rows"><thead><tr><th>Row</th><th>Action</th>`)
		for _, col := range v.Columns {
			h.raw(`<th>`)
			h.text(col)
			h.raw(`</th>`)
		}
		h.raw(`<th>Issues</th></tr></thead><tbody>`)

		for _, r := range v.Rows {
			h.rawf(`<tr class="%s"><td>%d</td><td>`, RowClass(r), r.RowNumber)
			h.text(ActionLabel(r))
			h.raw(`</td>`)
			for _, col := range v.Columns {
				if sev, ok := worstSeverity(r.Issues, col); ok {
					h.rawf(`<td class="%s" title="`, SeverityClass(sev))
					h.text(cellMessages(r.Issues, col))
					h.raw(`">`)
				} else if slices.Contains(r.Changed, col) {
					h.raw(`<td class="cell-changed">`)
				} else {
					h.raw(`<td>`)
				}
				h.text(r.Values[col])
				h.raw(`</td>`)
			}
			h.raw(`<td>`)
			for _, is := range r.Issues {
				if is.ColumnName == "" {
					h.rawf(`<span class="%s">`, SeverityClass(is.Severity))
					h.text(is.Message)
					h.raw(`</span> `)
				}
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

// ToastView renders a toast. The host page's event loop reads
// data-dismiss-after (milliseconds, 0 for sticky) to remove it.
func ToastView(t Toast) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.rawf(`<div class="toast toast-%s" role="status" data-dismiss-after="%d">`,
			templ.EscapeString(string(t.Kind)), t.DismissAfter.Milliseconds())
		h.text(t.Message)
		h.raw(`</div>`)
		return h.err
	})
}

// ErrorAlert renders a user-facing error message with its support code.
func ErrorAlert(msg imports.UserMessage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><p>`)
		h.text(msg.Message)
		h.raw(`</p>`)
		if msg.Action != "" {
			h.raw(`<p class="alert-action">`)
			h.text(msg.Action)
			h.raw(`</p>`)
		}
		h.raw(`<p class="alert-code">Code: `)
		h.text(msg.Code)
		h.raw(`</p></div>`)
		return h.err
	})
}

func cellMessages(issues []imports.Issue, column string) string {
	var s string
	for _, is := range issues {
		if is.ColumnName != column {
			continue
		}
		if s != "" {
			s += "; "
		}
		s += is.Message
	}
	return s
}
