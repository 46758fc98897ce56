package service

import (
	"context"
	"log/slog"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/observability"
	"github.com/teacherportal/marks-portal-service/internal/repository"
)

// AuditTrail appends entries to the durable audit log. Record never fails the
// caller: a persistence failure is reported on the operational channel (log +
// metric) and swallowed, since audit completeness is a monitoring concern,
// not a correctness precondition for the primary operation.
type AuditTrail struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

func NewAuditTrail(repo repository.AuditRepository, logger *slog.Logger) *AuditTrail {
	return &AuditTrail{repo: repo, logger: logger}
}

func (a *AuditTrail) Record(ctx context.Context, entry domain.AuditEntry) {
	observability.Audit(ctx, entry.Action,
		"teacher_id", ptrValue(entry.TeacherID),
		"target_id", ptrValue(entry.TargetID),
		"ip", entry.IP,
		"detail", entry.Detail,
	)
	if err := a.repo.Append(&entry); err != nil {
		observability.RecordAuditWriteFailure(ctx)
		a.logger.ErrorContext(ctx, "audit write failed",
			"action", entry.Action,
			"error", err,
		)
	}
}

func (a *AuditTrail) Recent(teacherID uint, limit int) ([]domain.AuditEntry, error) {
	return a.repo.ListRecentByTeacher(teacherID, limit)
}

func ptrValue(v *uint) any {
	if v == nil {
		return nil
	}
	return *v
}

func uintPtr(v uint) *uint { return &v }

func intPtr(v int) *int { return &v }
