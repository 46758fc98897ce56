package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teacherportal/marks-portal-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type AppMetrics struct {
	loginCounter      metric.Int64Counter
	sessionCounter    metric.Int64Counter
	rosterCounter     metric.Int64Counter
	auditFailCounter  metric.Int64Counter
	repositoryCounter metric.Int64Counter
	csrfCounter       metric.Int64Counter
	idempotencyCount  metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("marks-portal-service")
	loginCounter, err := meter.Int64Counter("auth.login.attempts")
	if err != nil {
		return nil, err
	}
	sessionCounter, err := meter.Int64Counter("auth.session.validations")
	if err != nil {
		return nil, err
	}
	rosterCounter, err := meter.Int64Counter("roster.mutations")
	if err != nil {
		return nil, err
	}
	auditFailCounter, err := meter.Int64Counter("audit.write.failures")
	if err != nil {
		return nil, err
	}
	repositoryCounter, err := meter.Int64Counter("repository.operations")
	if err != nil {
		return nil, err
	}
	csrfCounter, err := meter.Int64Counter("http.csrf.rejections")
	if err != nil {
		return nil, err
	}
	idempotencyCount, err := meter.Int64Counter("http.idempotency.decisions")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		loginCounter:      loginCounter,
		sessionCounter:    sessionCounter,
		rosterCounter:     rosterCounter,
		auditFailCounter:  auditFailCounter,
		repositoryCounter: repositoryCounter,
		csrfCounter:       csrfCounter,
		idempotencyCount:  idempotencyCount,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordLoginAttempt(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.loginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordSessionValidation(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.sessionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRosterMutation(ctx context.Context, action, status string) {
	m := current()
	if m == nil {
		return
	}
	m.rosterCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
	))
}

func RecordAuditWriteFailure(ctx context.Context) {
	m := current()
	if m == nil {
		return
	}
	m.auditFailCounter.Add(ctx, 1)
}

func RecordCSRFRejection(ctx context.Context, pathGroup string) {
	m := current()
	if m == nil {
		return
	}
	m.csrfCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("path_group", pathGroup)))
}

func RecordIdempotencyDecision(ctx context.Context, scope, state string) {
	m := current()
	if m == nil {
		return
	}
	m.idempotencyCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("state", state),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
