//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/teacherportal/marks-portal-service/internal/config"
	"github.com/teacherportal/marks-portal-service/internal/http/handler"
	"github.com/teacherportal/marks-portal-service/internal/observability"
	"github.com/teacherportal/marks-portal-service/internal/repository"
	"github.com/teacherportal/marks-portal-service/internal/service"
)

func Initialize(ctx context.Context) (*App, error) {
	wire.Build(
		config.Load,
		provideLogging,
		provideLogger,
		provideLoggerProvider,
		observability.InitRuntime,
		provideDB,
		repository.NewTeacherRepository,
		repository.NewSessionRepository,
		repository.NewStudentRepository,
		repository.NewAuditRepository,
		provideHasher,
		service.NewAuditTrail,
		provideAuthService,
		service.NewRosterService,
		provideRedis,
		provideIdempotency,
		provideReadiness,
		provideAuthHandler,
		handler.NewStudentHandler,
		handler.NewAuditHandler,
		provideHTTPHandler,
		provideServer,
		provideApp,
	)
	return nil, nil
}
