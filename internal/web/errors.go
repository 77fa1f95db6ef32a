package web

// errors.go maps errors to status codes and user-facing responses.
//
// The technical error is logged with the request id; the client receives
// the message from imports.MapError, as JSON for API routes and as an
// alert fragment or plain text otherwise.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	errNoFile      = errors.New("no file provided")
	errRateLimited = errors.New("rate limit exceeded")
)

// statusFor returns the HTTP status for err.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, imports.ErrUnknownKind), errors.Is(err, imports.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, imports.ErrSessionMismatch), errors.Is(err, imports.ErrStalePreview):
		return http.StatusConflict
	case errors.Is(err, imports.ErrBatchBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, imports.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, imports.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := imports.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = ErrorAlert(msg).Render(r.Context(), w)
	case wantsJSON(r):
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	default:
		http.Error(w, msg.Message+" (Code: "+msg.Code+")", status)
	}
}

// writeJSON encodes v with the given status. Encoding errors are only
// logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(context.Background()).Error("json encode error", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client prefers JSON. API routes default to JSON.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, errRateLimited)
}
