package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// APIKeyCookie carries the key for browser pages, whose form posts cannot
// set the X-API-Key header.
const APIKeyCookie = "catalogimport_api_key"

// APIKeyAuth rejects requests whose X-API-Key header, or APIKeyCookie when
// the header is absent, does not match one of keys. With no keys
// configured every request passes.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := RequestKey(r)
			switch {
			case key == "":
				logging.FromContext(r.Context()).Warn("auth: missing API key", "path", r.URL.Path, "method", r.Method)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH001")
			case !ValidKey(key, keys):
				logging.FromContext(r.Context()).Warn("auth: invalid API key", "path", r.URL.Path, "method", r.Method)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH002")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequestKey returns the API key sent with r, or "".
func RequestKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if c, err := r.Cookie(APIKeyCookie); err == nil {
		return c.Value
	}
	return ""
}

// ValidKey compares against every key in constant time.
func ValidKey(key string, keys []string) bool {
	valid := 0
	for _, k := range keys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return valid == 1
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
