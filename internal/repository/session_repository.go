package repository

import (
	"context"
	"errors"
	"time"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/observability"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(s *domain.SessionToken) error
	FindByToken(token string) (*domain.SessionToken, error)
	// ExtendActive slides the expiry of a still-active session forward.
	// It reports false when the session is unknown, revoked, or already
	// past expiry at the given instant; concurrent callers may all
	// succeed and the last committed expiry wins.
	ExtendActive(token string, now, expiresAt time.Time) (bool, error)
	// MarkExpired transitions a session to its terminal expired state so
	// it can never be revived. Idempotent.
	MarkExpired(token string, now time.Time) error
	// Revoke is an idempotent no-op for unknown or already-revoked tokens.
	Revoke(token, reason string) error
	RevokeAllForTeacher(teacherID uint, reason string) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(s *domain.SessionToken) error {
	err := r.db.Create(s).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "create", "success")
	return nil
}

func (r *GormSessionRepository) FindByToken(token string) (*domain.SessionToken, error) {
	var s domain.SessionToken
	err := r.db.Where("token = ?", token).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", "find_by_token", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", "find_by_token", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "find_by_token", "success")
	return &s, nil
}

func (r *GormSessionRepository) ExtendActive(token string, now, expiresAt time.Time) (bool, error) {
	res := r.db.Model(&domain.SessionToken{}).
		Where("token = ? AND revoked_at IS NULL AND expires_at > ?", token, now).
		Update("expires_at", expiresAt)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "extend_active", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "extend_active", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) MarkExpired(token string, now time.Time) error {
	err := r.db.Model(&domain.SessionToken{}).
		Where("token = ? AND revoked_at IS NULL", token).
		Updates(map[string]any{"revoked_at": now.UTC(), "revoked_reason": domain.SessionRevokedExpired}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "mark_expired", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "mark_expired", "success")
	return nil
}

func (r *GormSessionRepository) Revoke(token, reason string) error {
	err := r.db.Model(&domain.SessionToken{}).
		Where("token = ? AND revoked_at IS NULL", token).
		Updates(map[string]any{"revoked_at": time.Now().UTC(), "revoked_reason": reason}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke", "success")
	return nil
}

func (r *GormSessionRepository) RevokeAllForTeacher(teacherID uint, reason string) (int64, error) {
	res := r.db.Model(&domain.SessionToken{}).
		Where("teacher_id = ? AND revoked_at IS NULL", teacherID).
		Updates(map[string]any{"revoked_at": time.Now().UTC(), "revoked_reason": reason})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "revoke_all_for_teacher", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "revoke_all_for_teacher", "success")
	return res.RowsAffected, nil
}
