package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// multipartMemory is the part of an upload kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// CommitResponse is the JSON body of a commit.
type CommitResponse struct {
	Receipt imports.CommitReceipt `json:"receipt"`
	Toast   Toast                 `json:"toast"`
}

// handleKinds lists the importable kinds.
func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.Kinds())
}

// handlePreview reads an uploaded CSV or XLSX file and previews it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	imp, err := s.reg.Get(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("file too large: %w", err))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	opts := imp.Info().ReadOptions()
	opts.Sheet = r.FormValue("sheet")
	opts.MaxHeaderSearchRows = s.opts.MaxHeaderSearchRows

	table, err := imports.ReadFile(header.Filename, file, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Without a locale field the pipeline default applies.
	var loc imports.Locale
	if name := r.FormValue("locale"); name != "" {
		loc, _ = imports.LocaleByName(name)
	}

	view, err := imp.PreviewTable(r.Context(), table, loc)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "kind", view.Kind, "session_id", view.SessionID).Debug("preview served",
		"file", header.Filename, "size", header.Size)
	writeJSON(w, http.StatusOK, view)
}

// handleSession returns a stored preview as JSON.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSessionPage renders a stored preview as HTML.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	templ.Handler(PreviewPage(view)).ServeHTTP(w, r)
}

func (s *Server) session(r *http.Request) (*imports.PreviewView, error) {
	imp, err := s.reg.Get(chi.URLParam(r, "kind"))
	if err != nil {
		return nil, err
	}
	return imp.Session(r.Context(), chi.URLParam(r, "sessionID"))
}

// handleCommit commits a stored preview. The body always carries the
// receipt; the status reflects its outcome.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	imp, err := s.reg.Get(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	rcpt, err := imp.Commit(r.Context(), chi.URLParam(r, "sessionID"))
	status := commitStatus(rcpt, err)
	if err != nil {
		logging.FromContext(r.Context()).Warn("commit failed",
			"kind", rcpt.Kind,
			"session_id", rcpt.SessionID,
			"status", status,
			"error", err,
		)
	}

	toast := ToastFor(rcpt)
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = ToastView(toast).Render(r.Context(), w)
		return
	}
	writeJSON(w, status, CommitResponse{Receipt: rcpt, Toast: toast})
}

func commitStatus(rcpt imports.CommitReceipt, err error) int {
	if rcpt.Status != imports.StatusFailed {
		return http.StatusOK
	}
	if status := statusFor(err); status != http.StatusInternalServerError || len(rcpt.Failures) == 0 {
		return status
	}
	return http.StatusUnprocessableEntity
}

// handleTemplate downloads an empty file with the kind's columns, as CSV
// or, with ?format=xlsx, as a workbook.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	imp, err := s.reg.Get(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	info := imp.Info()

	if r.URL.Query().Get("format") == "xlsx" {
		f := excelize.NewFile()
		defer f.Close()

		row := make([]any, len(info.Columns))
		for i, c := range info.Columns {
			row[i] = c
		}
		if err := f.SetSheetRow("Sheet1", "A1", &row); err != nil {
			s.respondError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.xlsx"`, info.Kind))
		if err := f.Write(w); err != nil {
			logging.FromContext(r.Context()).Error("write template", "kind", info.Kind, "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.csv"`, info.Kind))
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	_ = cw.Write(info.Columns)
	cw.Flush()
}

// handleStatus reports the import limiter state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.limiter.Status())
}

// handleHealth reports whether the service and its store are reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
