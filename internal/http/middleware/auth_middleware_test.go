package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/teacherportal/marks-portal-service/internal/service"
)

type fakeAuthenticator struct {
	teacherID uint
	err       error

	gotToken string
	gotIP    string
}

func (f *fakeAuthenticator) Guard(_ context.Context, token, ip string) (uint, error) {
	f.gotToken = token
	f.gotIP = ip
	if f.err != nil {
		return 0, f.err
	}
	return f.teacherID, nil
}

func protectedProbe(t *testing.T) (http.Handler, *uint) {
	t.Helper()
	var seen uint
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := TeacherIDFromContext(r.Context())
		if !ok {
			t.Fatal("expected teacher id in context")
		}
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}), &seen
}

func TestSessionAuthAcceptsCookieToken(t *testing.T) {
	auth := &fakeAuthenticator{teacherID: 7}
	inner, seen := protectedProbe(t)
	h := SessionAuth(auth)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}
	if *seen != 7 {
		t.Fatalf("expected teacher 7 in context, got %d", *seen)
	}
	if auth.gotToken != "cookie-token" {
		t.Fatalf("expected cookie token forwarded, got %q", auth.gotToken)
	}
	if auth.gotIP != "10.1.2.3" {
		t.Fatalf("expected client ip without port, got %q", auth.gotIP)
	}
}

func TestSessionAuthFallsBackToBearer(t *testing.T) {
	auth := &fakeAuthenticator{teacherID: 3}
	inner, _ := protectedProbe(t)
	h := SessionAuth(auth)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if auth.gotToken != "header-token" {
		t.Fatalf("expected bearer token forwarded, got %q", auth.gotToken)
	}
}

func TestSessionAuthCookieWinsOverBearer(t *testing.T) {
	auth := &fakeAuthenticator{teacherID: 3}
	h := SessionAuth(auth)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
	req.Header.Set("Authorization", "Bearer header-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if auth.gotToken != "cookie-token" {
		t.Fatalf("expected cookie to take precedence, got %q", auth.gotToken)
	}
}

func TestSessionAuthRejectsByErrorClass(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"invalid", service.ErrSessionInvalid, "UNAUTHORIZED"},
		{"expired", service.ErrSessionExpired, "SESSION_EXPIRED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &fakeAuthenticator{err: tc.err}
			h := SessionAuth(auth)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
			req.Header.Set("Authorization", "Bearer some-token")
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if body := rr.Body.String(); !strings.Contains(body, tc.wantCode) {
				t.Fatalf("expected %s error code, got %s", tc.wantCode, body)
			}
		})
	}
}
