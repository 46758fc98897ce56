package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/repository"
	"github.com/teacherportal/marks-portal-service/internal/security"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db       *gorm.DB
	hasher   *security.PasswordHasher
	auth     *AuthService
	roster   *RosterService
	trail    *AuditTrail
	sessions repository.SessionRepository
}

func newTestEnv(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=10000", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hasher, err := security.NewPasswordHasher(security.MinHashIterations)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	trail := NewAuditTrail(repository.NewAuditRepository(db), discard)
	sessions := repository.NewSessionRepository(db)
	auth := NewAuthService(repository.NewTeacherRepository(db), sessions, hasher, trail, discard, ttl)
	roster := NewRosterService(repository.NewStudentRepository(db), trail)
	return &testEnv{db: db, hasher: hasher, auth: auth, roster: roster, trail: trail, sessions: sessions}
}

func (e *testEnv) createTeacher(t *testing.T, username, password string) *domain.Teacher {
	t.Helper()
	salt, err := e.hasher.NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	teacher := &domain.Teacher{
		Username:     username,
		Salt:         salt,
		PasswordHash: e.hasher.Hash(password, salt),
	}
	if err := e.db.Create(teacher).Error; err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	return teacher
}

func (e *testEnv) auditActions(t *testing.T) []string {
	t.Helper()
	var entries []domain.AuditEntry
	if err := e.db.Order("id").Find(&entries).Error; err != nil {
		t.Fatalf("load audit entries: %v", err)
	}
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func containsAction(actions []string, want string) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}
