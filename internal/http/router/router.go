package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teacherportal/marks-portal-service/internal/health"
	"github.com/teacherportal/marks-portal-service/internal/http/handler"
	"github.com/teacherportal/marks-portal-service/internal/http/middleware"
	"github.com/teacherportal/marks-portal-service/internal/http/response"
)

type IdempotencyMiddlewareFactory func(scope string) func(http.Handler) http.Handler

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	StudentHandler *handler.StudentHandler
	AuditHandler   *handler.AuditHandler
	Sessions       middleware.SessionAuthenticator
	CORSOrigins    []string
	BodyLimitBytes int64
	Idempotency    IdempotencyMiddlewareFactory
	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	bodyLimit := dep.BodyLimitBytes
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}
	r.Use(middleware.BodyLimit(bodyLimit))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	sessionAuth := middleware.SessionAuth(dep.Sessions)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", dep.AuthHandler.Login)
			r.With(sessionAuth, middleware.CSRFMiddleware).Post("/logout", dep.AuthHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Get("/students", dep.StudentHandler.List)
			r.Get("/audit-logs", dep.AuditHandler.Recent)

			r.Group(func(r chi.Router) {
				r.Use(middleware.CSRFMiddleware)
				addChain := []func(http.Handler) http.Handler{}
				if dep.Idempotency != nil {
					addChain = append(addChain, dep.Idempotency("students.add"))
				}
				r.With(addChain...).Post("/students", dep.StudentHandler.Add)
				r.Patch("/students/{id}/marks", dep.StudentHandler.UpdateMarks)
				r.Delete("/students/{id}", dep.StudentHandler.Delete)
			})
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
