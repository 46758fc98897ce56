package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/teacherportal/marks-portal-service/internal/http/response"
	"github.com/teacherportal/marks-portal-service/internal/observability"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

// Idempotency returns a per-scope middleware factory. Requests carrying an
// Idempotency-Key header are claimed in the store before the handler runs;
// a retry with the same key and payload replays the stored response, a
// reuse with a different payload is rejected.
func Idempotency(store service.IdempotencyStore, ttl time.Duration) func(scope string) func(http.Handler) http.Handler {
	return func(scope string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				key := r.Header.Get("Idempotency-Key")
				if key == "" {
					next.ServeHTTP(w, r)
					return
				}

				body, err := io.ReadAll(r.Body)
				if err != nil {
					response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "unable to read request body", nil)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				fingerprint := requestFingerprint(r.Method, r.URL.Path, body)

				begin, err := store.Begin(r.Context(), scope, key, fingerprint, ttl)
				if err != nil {
					// The store is an optimization, not a gatekeeper:
					// losing it must not block writes.
					observability.RecordIdempotencyDecision(r.Context(), scope, "store_error")
					next.ServeHTTP(w, r)
					return
				}

				observability.RecordIdempotencyDecision(r.Context(), scope, string(begin.State))
				switch begin.State {
				case service.IdempotencyStateConflict:
					response.Error(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", "idempotency key was used with a different request", nil)
					return
				case service.IdempotencyStateInProgress:
					response.Error(w, r, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "original request is still being processed", nil)
					return
				case service.IdempotencyStateReplay:
					w.Header().Set("Content-Type", begin.Cached.ContentType)
					w.Header().Set("Idempotency-Replayed", "true")
					w.WriteHeader(begin.Cached.StatusCode)
					_, _ = w.Write(begin.Cached.Body)
					return
				}

				rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
				next.ServeHTTP(rec, r)

				if rec.status < http.StatusInternalServerError {
					_ = store.Complete(r.Context(), scope, key, fingerprint, service.CachedHTTPResponse{
						StatusCode:  rec.status,
						ContentType: rec.Header().Get("Content-Type"),
						Body:        rec.body.Bytes(),
					}, ttl)
				}
			})
		}
	}
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
