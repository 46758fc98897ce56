package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/teacherportal/marks-portal-service/internal/http/response"
	"github.com/teacherportal/marks-portal-service/internal/observability"
)

// CSRFMiddleware applies the double-submit check to cookie-authenticated
// mutations: the X-CSRF-Token header must match the csrf_token cookie.
// Bearer requests carry no ambient credential and are exempt, as are safe
// methods.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(strings.ToLower(r.Header.Get("Authorization")), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie("csrf_token")
		if err != nil || cookie.Value == "" {
			rejectCSRF(w, r)
			return
		}
		header := r.Header.Get("X-CSRF-Token")
		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
			rejectCSRF(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rejectCSRF(w http.ResponseWriter, r *http.Request) {
	observability.RecordCSRFRejection(r.Context(), csrfPathGroup(r.URL.Path))
	response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "csrf token missing or mismatched", nil)
}

// csrfPathGroup buckets request paths into low-cardinality metric labels.
func csrfPathGroup(path string) string {
	if strings.HasPrefix(path, "/health") {
		return "health"
	}
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return "root"
	}
	segment, _, _ := strings.Cut(rest, "/")
	if segment == "" {
		return "root"
	}
	return "api/" + segment
}
