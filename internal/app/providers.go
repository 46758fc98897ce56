package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/teacherportal/marks-portal-service/internal/config"
	"github.com/teacherportal/marks-portal-service/internal/health"
	"github.com/teacherportal/marks-portal-service/internal/http/handler"
	"github.com/teacherportal/marks-portal-service/internal/http/middleware"
	"github.com/teacherportal/marks-portal-service/internal/http/router"
	"github.com/teacherportal/marks-portal-service/internal/observability"
	"github.com/teacherportal/marks-portal-service/internal/repository"
	"github.com/teacherportal/marks-portal-service/internal/security"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

type loggingState struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

func provideLogging(ctx context.Context, cfg *config.Config) (*loggingState, error) {
	logger, provider, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &loggingState{logger: logger, provider: provider}, nil
}

func provideLogger(ls *loggingState) *slog.Logger { return ls.logger }

func provideLoggerProvider(ls *loggingState) *sdklog.LoggerProvider { return ls.provider }

// provideDB opens the configured database; Open migrates the schema itself.
func provideDB(cfg *config.Config) (*gorm.DB, error) {
	return repository.Open(cfg)
}

func provideHasher(cfg *config.Config) (*security.PasswordHasher, error) {
	return security.NewPasswordHasher(cfg.HashIterations)
}

func provideAuthService(
	cfg *config.Config,
	teachers repository.TeacherRepository,
	sessions repository.SessionRepository,
	hasher *security.PasswordHasher,
	trail *service.AuditTrail,
	logger *slog.Logger,
) *service.AuthService {
	return service.NewAuthService(teachers, sessions, hasher, trail, logger, cfg.SessionTTL)
}

// provideRedis returns nil when no address is configured; idempotency and
// the redis readiness check degrade gracefully without it.
func provideRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func provideIdempotency(cfg *config.Config, client *redis.Client) router.IdempotencyMiddlewareFactory {
	if client == nil {
		return nil
	}
	store := service.NewRedisIdempotencyStore(client, "marksportal:idem")
	return middleware.Idempotency(store, cfg.IdempotencyTTL)
}

func provideReadiness(db *gorm.DB, client *redis.Client) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewProbeRunner(10*time.Second, 3*time.Second, checkers...)
}

func provideAuthHandler(cfg *config.Config, auth *service.AuthService) *handler.AuthHandler {
	secureCookies := cfg.Env == "prod" || cfg.Env == "production"
	return handler.NewAuthHandler(auth, secureCookies)
}

func provideHTTPHandler(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	studentHandler *handler.StudentHandler,
	auditHandler *handler.AuditHandler,
	auth *service.AuthService,
	idempotency router.IdempotencyMiddlewareFactory,
	readiness *health.ProbeRunner,
) http.Handler {
	return router.NewRouter(router.Dependencies{
		AuthHandler:    authHandler,
		StudentHandler: studentHandler,
		AuditHandler:   auditHandler,
		Sessions:       auth,
		CORSOrigins:    cfg.CORSOrigins,
		BodyLimitBytes: cfg.BodyLimitBytes,
		Idempotency:    idempotency,
		Readiness:      readiness,
		EnableOTelHTTP: cfg.OTELTracingEnabled,
	})
}

func provideServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	db *gorm.DB,
	client *redis.Client,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
) *App {
	return New(cfg, logger, server, db, client, runtime, readiness, readiness.Stop)
}
