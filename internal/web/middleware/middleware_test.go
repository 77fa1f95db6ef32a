package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func echoRemote(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(r.RemoteAddr))
}

func TestTrustedRealIP(t *testing.T) {
	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "garbage"})(http.HandlerFunc(echoRemote))

	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{name: "trusted proxy real ip", remote: "10.1.2.3:5000", header: map[string]string{"X-Real-IP": "203.0.113.7"}, want: "203.0.113.7"},
		{name: "trusted single host forwarded", remote: "192.168.1.5:80", header: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, want: "198.51.100.1"},
		{name: "untrusted client", remote: "203.0.113.9:4000", header: map[string]string{"X-Real-IP": "1.2.3.4"}, want: "203.0.113.9:4000"},
		{name: "invalid header ignored", remote: "10.1.2.3:5000", header: map[string]string{"X-Real-IP": "not-an-ip"}, want: "10.1.2.3:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if got := rr.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		keys   []string
		key    string
		cookie string
		want   int
	}{
		{name: "disabled", keys: nil, key: "", want: http.StatusNoContent},
		{name: "missing key", keys: []string{"k1"}, key: "", want: http.StatusUnauthorized},
		{name: "wrong key", keys: []string{"k1"}, key: "k2", want: http.StatusForbidden},
		{name: "second key matches", keys: []string{"k1", "k2"}, key: "k2", want: http.StatusNoContent},
		{name: "cookie key", keys: []string{"k1"}, cookie: "k1", want: http.StatusNoContent},
		{name: "wrong cookie key", keys: []string{"k1"}, cookie: "k2", want: http.StatusForbidden},
		{name: "header wins over cookie", keys: []string{"k1"}, key: "k1", cookie: "k2", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/kinds", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: APIKeyCookie, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			APIKeyAuth(tt.keys)(ok).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusTeapot)
	}
	if rr.Body.String() != "short and stout" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	l, err := NewRateLimiter("2-M", nil)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}
	limited := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}
	handler := RateLimit(l, limited)(http.HandlerFunc(echoRemote))

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, code := range want {
		req := httptest.NewRequest(http.MethodGet, "/api/kinds", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != code {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, code)
		}
	}

	// Another client has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/api/kinds", nil)
	req.RemoteAddr = "192.0.2.11:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

func TestNewRateLimiter_InvalidRate(t *testing.T) {
	if _, err := NewRateLimiter("lots", nil); err == nil {
		t.Error("NewRateLimiter(lots) error = nil, want error")
	}
}
