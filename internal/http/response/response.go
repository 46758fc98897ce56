// Package response renders the API's uniform JSON envelope. Every body,
// success or failure, carries a meta block with the request id so a client
// report can be matched against the request log.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
	Meta    metaBody   `json:"meta"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type metaBody struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	write(w, status, envelope{Success: true, Data: data, Meta: newMeta(r)})
}

// Error writes a failure envelope. The code is a stable machine-readable
// identifier; details, when present, carry field-level structure.
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	write(w, status, envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: message, Details: details},
		Meta:    newMeta(r),
	})
}

func write(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func newMeta(r *http.Request) metaBody {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		// Writers outside the middleware chain still get a correlatable id.
		id = r.Header.Get("X-Request-Id")
	}
	if id == "" {
		id = "req-unknown"
	}
	return metaBody{RequestID: id, Timestamp: time.Now().UTC()}
}
