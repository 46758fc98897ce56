package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/teacherportal/marks-portal-service/internal/service"
)

func newIdempotencyFactory(t *testing.T) func(scope string) func(http.Handler) http.Handler {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := service.NewRedisIdempotencyStore(client, "idem")
	return Idempotency(store, time.Minute)
}

func TestIdempotencyReplaysCompletedResponse(t *testing.T) {
	factory := newIdempotencyFactory(t)
	calls := 0
	h := factory("students.add")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"name":"John Doe"}`))
		req.Header.Set("Idempotency-Key", "key-1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("first request expected 201, got %d", first.Code)
	}
	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("replay expected 201, got %d", second.Code)
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatal("expected replay marker header")
	}
	if second.Body.String() != `{"id":1}` {
		t.Fatalf("unexpected replay body: %s", second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentPayload(t *testing.T) {
	factory := newIdempotencyFactory(t)
	h := factory("students.add")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"name":"John Doe"}`))
	req.Header.Set("Idempotency-Key", "key-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("first request expected 201, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"name":"Jane Roe"}`))
	req.Header.Set("Idempotency-Key", "key-1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for fingerprint mismatch, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "IDEMPOTENCY_KEY_REUSED") {
		t.Fatalf("expected IDEMPOTENCY_KEY_REUSED, got %s", rr.Body.String())
	}
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	factory := newIdempotencyFactory(t)
	calls := 0
	h := factory("students.add")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run each time without a key, ran %d", calls)
	}
}
