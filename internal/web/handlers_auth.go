package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/web/middleware"
)

// defaultLanding is where a login without a next page ends up.
const defaultLanding = "/api/kinds"

// pageAuth guards the HTML pages. A browser without a key is sent to the
// login form; a wrong key is rejected like on the API.
func (s *Server) pageAuth(next http.Handler) http.Handler {
	auth := middleware.APIKeyAuth(s.opts.APIKeys)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.opts.APIKeys) > 0 && middleware.RequestKey(r) == "" {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		auth.ServeHTTP(w, r)
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	templ.Handler(LoginPage(localPath(r.URL.Query().Get("next")), false)).ServeHTTP(w, r)
}

// handleLogin checks the posted key and stores it in the cookie that the
// pages and their commit form send along.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	key := r.PostFormValue("key")
	next := localPath(r.PostFormValue("next"))

	if !middleware.ValidKey(key, s.opts.APIKeys) {
		logging.FromContext(r.Context()).Warn("login: invalid API key", "path", r.URL.Path)
		templ.Handler(LoginPage(next, true), templ.WithStatus(http.StatusForbidden)).ServeHTTP(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.APIKeyCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// localPath keeps redirects on this host.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, `/\`) {
		return defaultLanding
	}
	return p
}
