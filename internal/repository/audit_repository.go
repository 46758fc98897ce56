package repository

import (
	"context"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/observability"

	"gorm.io/gorm"
)

// AuditRepository is append-only. No mutation or deletion API exists;
// retention is an operational concern outside this service.
type AuditRepository interface {
	Append(entry *domain.AuditEntry) error
	ListRecentByTeacher(teacherID uint, limit int) ([]domain.AuditEntry, error)
}

type GormAuditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository { return &GormAuditRepository{db: db} }

func (r *GormAuditRepository) Append(entry *domain.AuditEntry) error {
	err := r.db.Create(entry).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "audit", "append", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "audit", "append", "success")
	return nil
}

func (r *GormAuditRepository) ListRecentByTeacher(teacherID uint, limit int) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := r.db.Where("teacher_id = ?", teacherID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "audit", "list_recent", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "audit", "list_recent", "success")
	return entries, nil
}
