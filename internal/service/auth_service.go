package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/observability"
	"github.com/teacherportal/marks-portal-service/internal/repository"
	"github.com/teacherportal/marks-portal-service/internal/security"
)

// AuthService owns the whole session lifecycle: credential verification at
// login, sliding-expiry validation through Guard, and idempotent logout.
// Guard is the single choke point every protected operation passes through.
type AuthService struct {
	teachers repository.TeacherRepository
	sessions repository.SessionRepository
	hasher   *security.PasswordHasher
	audit    *AuditTrail
	logger   *slog.Logger
	ttl      time.Duration

	now func() time.Time
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAuthService(
	teachers repository.TeacherRepository,
	sessions repository.SessionRepository,
	hasher *security.PasswordHasher,
	audit *AuditTrail,
	logger *slog.Logger,
	ttl time.Duration,
) *AuthService {
	return &AuthService{
		teachers: teachers,
		sessions: sessions,
		hasher:   hasher,
		audit:    audit,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	username, err := ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	teacher, err := s.teachers.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrTeacherNotFound) {
			observability.RecordLoginAttempt(ctx, "unknown_user")
			s.audit.Record(ctx, domain.AuditEntry{
				Action: domain.AuditActionLoginFailed,
				IP:     ip,
				Detail: "unknown username",
			})
			return nil, ErrAuthentication
		}
		return nil, err
	}

	if !s.hasher.Verify(password, teacher.Salt, teacher.PasswordHash) {
		observability.RecordLoginAttempt(ctx, "bad_password")
		s.audit.Record(ctx, domain.AuditEntry{
			TeacherID: uintPtr(teacher.ID),
			Action:    domain.AuditActionLoginFailed,
			IP:        ip,
			Detail:    "password mismatch",
		})
		return nil, ErrAuthentication
	}

	token, err := security.NewSessionToken()
	if err != nil {
		return nil, err
	}

	// One active session per teacher: a new login supersedes the old
	// ones, and the revocation keeps them visible in the trail.
	if _, err := s.sessions.RevokeAllForTeacher(teacher.ID, domain.SessionRevokedRotated); err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.ttl)
	session := &domain.SessionToken{
		TeacherID: teacher.ID,
		Token:     token,
		IP:        ip,
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}

	observability.RecordLoginAttempt(ctx, "success")
	s.audit.Record(ctx, domain.AuditEntry{
		TeacherID: uintPtr(teacher.ID),
		Action:    domain.AuditActionLogin,
		IP:        ip,
	})
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

// Guard validates a session token and slides its expiry forward. On success
// it returns the owning teacher; on failure it audits the denied access and
// returns ErrSessionInvalid or ErrSessionExpired without running anything.
func (s *AuthService) Guard(ctx context.Context, token, ip string) (uint, error) {
	if token == "" {
		observability.RecordSessionValidation(ctx, "missing")
		s.audit.Record(ctx, domain.AuditEntry{
			Action: domain.AuditActionAccessDenied,
			IP:     ip,
			Detail: "missing session token",
		})
		return 0, ErrSessionInvalid
	}

	session, err := s.sessions.FindByToken(token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return 0, s.deny(ctx, nil, ip, "unknown session token", ErrSessionInvalid)
		}
		return 0, err
	}

	now := s.now()
	if session.RevokedAt != nil {
		if session.RevokedReason != nil && *session.RevokedReason == domain.SessionRevokedExpired {
			return 0, s.deny(ctx, uintPtr(session.TeacherID), ip, "session expired", ErrSessionExpired)
		}
		return 0, s.deny(ctx, uintPtr(session.TeacherID), ip, "session revoked", ErrSessionInvalid)
	}
	if !now.Before(session.ExpiresAt) {
		// Terminal transition: the token can never be revived.
		if err := s.sessions.MarkExpired(token, now); err != nil {
			return 0, err
		}
		return 0, s.deny(ctx, uintPtr(session.TeacherID), ip, "session expired", ErrSessionExpired)
	}

	extended, err := s.sessions.ExtendActive(token, now, now.Add(s.ttl))
	if err != nil {
		return 0, err
	}
	if !extended {
		// A concurrent logout or expiry won the race between our read
		// and the extension; re-read to classify.
		fresh, err := s.sessions.FindByToken(token)
		if err != nil {
			return 0, s.deny(ctx, uintPtr(session.TeacherID), ip, "unknown session token", ErrSessionInvalid)
		}
		if fresh.RevokedReason != nil && *fresh.RevokedReason == domain.SessionRevokedExpired {
			return 0, s.deny(ctx, uintPtr(session.TeacherID), ip, "session expired", ErrSessionExpired)
		}
		if fresh.RevokedAt != nil {
			return 0, s.deny(ctx, uintPtr(session.TeacherID), ip, "session revoked", ErrSessionInvalid)
		}
		return 0, s.deny(ctx, uintPtr(session.TeacherID), ip, "session expired", ErrSessionExpired)
	}

	// A roaming client changing IP is expected; record it, never fail it.
	if ip != "" && session.IP != "" && ip != session.IP {
		s.logger.InfoContext(ctx, "session ip changed",
			"teacher_id", session.TeacherID,
			"session_ip", session.IP,
			"request_ip", ip,
		)
	}

	observability.RecordSessionValidation(ctx, "valid")
	return session.TeacherID, nil
}

// Logout revokes the session. Revoking an unknown or already-revoked token
// is a no-op success.
func (s *AuthService) Logout(ctx context.Context, token, ip string) error {
	if token == "" {
		return nil
	}
	session, err := s.sessions.FindByToken(token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	alreadyRevoked := session.RevokedAt != nil
	if err := s.sessions.Revoke(token, domain.SessionRevokedLogout); err != nil {
		return err
	}
	if !alreadyRevoked {
		s.audit.Record(ctx, domain.AuditEntry{
			TeacherID: uintPtr(session.TeacherID),
			Action:    domain.AuditActionLogout,
			IP:        ip,
		})
	}
	return nil
}

func (s *AuthService) deny(ctx context.Context, teacherID *uint, ip, detail string, cause error) error {
	outcome := "invalid"
	if errors.Is(cause, ErrSessionExpired) {
		outcome = "expired"
	}
	observability.RecordSessionValidation(ctx, outcome)
	s.audit.Record(ctx, domain.AuditEntry{
		TeacherID: teacherID,
		Action:    domain.AuditActionAccessDenied,
		IP:        ip,
		Detail:    detail,
	})
	return cause
}
