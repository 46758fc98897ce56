package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teacherportal/marks-portal-service/internal/domain"
)

func TestLoginIssuesTokenAndAudits(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 8*time.Hour)
	env.createTeacher(t, "alice", "correct-horse")

	start := time.Now()
	res, err := env.auth.Login(ctx, "alice", "correct-horse", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(res.Token) != 64 {
		t.Fatalf("expected 64-char token, got %d chars", len(res.Token))
	}
	if res.ExpiresAt.Before(start.Add(8*time.Hour - time.Minute)) {
		t.Fatalf("expiry %v too early for 8h ttl", res.ExpiresAt)
	}

	teacherID, err := env.auth.Guard(ctx, res.Token, "10.0.0.1")
	if err != nil {
		t.Fatalf("guard after login: %v", err)
	}
	if teacherID == 0 {
		t.Fatal("guard returned zero teacher id")
	}

	if actions := env.auditActions(t); !containsAction(actions, domain.AuditActionLogin) {
		t.Fatalf("expected login audit entry, got %v", actions)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Hour)
	env.createTeacher(t, "alice", "correct-horse")

	if _, err := env.auth.Login(ctx, "nobody", "whatever", "10.0.0.1"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("unknown user: expected ErrAuthentication, got %v", err)
	}
	if _, err := env.auth.Login(ctx, "alice", "wrong-pass", "10.0.0.1"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("bad password: expected ErrAuthentication, got %v", err)
	}

	var entries []domain.AuditEntry
	if err := env.db.Where("action = ?", domain.AuditActionLoginFailed).Order("id").Find(&entries).Error; err != nil {
		t.Fatalf("load audit entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 failed-login audit entries, got %d", len(entries))
	}
	if entries[0].TeacherID != nil {
		t.Fatal("unknown-user entry should not carry a teacher id")
	}
	if entries[1].TeacherID == nil {
		t.Fatal("bad-password entry should carry the teacher id")
	}
}

func TestLoginValidatesForm(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Hour)

	if _, err := env.auth.Login(ctx, "ab", "long-enough", ""); AsValidationError(err) == nil {
		t.Fatalf("short username: expected validation error, got %v", err)
	}
	if _, err := env.auth.Login(ctx, "alice", "short", ""); AsValidationError(err) == nil {
		t.Fatalf("short password: expected validation error, got %v", err)
	}
}

func TestNewLoginSupersedesOldSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Hour)
	env.createTeacher(t, "alice", "correct-horse")

	first, err := env.auth.Login(ctx, "alice", "correct-horse", "10.0.0.1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := env.auth.Login(ctx, "alice", "correct-horse", "10.0.0.2")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := env.auth.Guard(ctx, first.Token, "10.0.0.1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("superseded token: expected ErrSessionInvalid, got %v", err)
	}
	if _, err := env.auth.Guard(ctx, second.Token, "10.0.0.2"); err != nil {
		t.Fatalf("fresh token: %v", err)
	}

	old, err := env.sessions.FindByToken(first.Token)
	if err != nil {
		t.Fatalf("find superseded session: %v", err)
	}
	if old.RevokedReason == nil || *old.RevokedReason != domain.SessionRevokedRotated {
		t.Fatalf("expected superseded reason, got %v", old.RevokedReason)
	}
}

func TestGuardSlidesExpiry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Hour)
	env.createTeacher(t, "alice", "correct-horse")

	base := time.Now()
	env.auth.now = func() time.Time { return base }
	res, err := env.auth.Login(ctx, "alice", "correct-horse", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// 55 minutes in: still inside the window, validation pushes the
	// deadline a full hour past this moment.
	env.auth.now = func() time.Time { return base.Add(55 * time.Minute) }
	if _, err := env.auth.Guard(ctx, res.Token, "10.0.0.1"); err != nil {
		t.Fatalf("guard at 55m: %v", err)
	}
	session, err := env.sessions.FindByToken(res.Token)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	want := base.Add(55 * time.Minute).Add(time.Hour)
	if got := session.ExpiresAt; !got.Equal(want) && got.Sub(want).Abs() > time.Second {
		t.Fatalf("expected expiry near %v, got %v", want, got)
	}

	// Without the slide the token would have died at base+1h.
	env.auth.now = func() time.Time { return base.Add(90 * time.Minute) }
	if _, err := env.auth.Guard(ctx, res.Token, "10.0.0.1"); err != nil {
		t.Fatalf("guard at 90m after slide: %v", err)
	}
}

func TestGuardExpiryIsTerminal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Hour)
	env.createTeacher(t, "alice", "correct-horse")

	base := time.Now()
	env.auth.now = func() time.Time { return base }
	res, err := env.auth.Login(ctx, "alice", "correct-horse", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	env.auth.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := env.auth.Guard(ctx, res.Token, "10.0.0.1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// Even if the clock rolled back the token stays dead.
	env.auth.now = func() time.Time { return base.Add(10 * time.Minute) }
	if _, err := env.auth.Guard(ctx, res.Token, "10.0.0.1"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected terminal expiry, got %v", err)
	}

	session, err := env.sessions.FindByToken(res.Token)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}
	if session.RevokedReason == nil || *session.RevokedReason != domain.SessionRevokedExpired {
		t.Fatalf("expected expired reason, got %v", session.RevokedReason)
	}
}

func TestGuardRejectsMissingAndUnknownTokens(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Hour)

	if _, err := env.auth.Guard(ctx, "", "10.0.0.1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("empty token: expected ErrSessionInvalid, got %v", err)
	}
	if _, err := env.auth.Guard(ctx, "deadbeef", "10.0.0.1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("unknown token: expected ErrSessionInvalid, got %v", err)
	}
	if actions := env.auditActions(t); !containsAction(actions, domain.AuditActionAccessDenied) {
		t.Fatalf("expected access_denied audit entries, got %v", actions)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Hour)
	env.createTeacher(t, "alice", "correct-horse")

	res, err := env.auth.Login(ctx, "alice", "correct-horse", "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := env.auth.Logout(ctx, res.Token, "10.0.0.1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := env.auth.Logout(ctx, res.Token, "10.0.0.1"); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := env.auth.Logout(ctx, "no-such-token", "10.0.0.1"); err != nil {
		t.Fatalf("logout unknown token: %v", err)
	}

	if _, err := env.auth.Guard(ctx, res.Token, "10.0.0.1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after logout, got %v", err)
	}

	logouts := 0
	for _, action := range env.auditActions(t) {
		if action == domain.AuditActionLogout {
			logouts++
		}
	}
	if logouts != 1 {
		t.Fatalf("expected exactly one logout audit entry, got %d", logouts)
	}
}
