package repository

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teacherportal/marks-portal-service/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=10000", strings.ReplaceAll(t.Name(), "/", "_"))
	return openTestDB(t, dsn)
}

// newFileTestDB backs the database with a real file so concurrent
// connections contend through sqlite's database-level locking instead of
// shared-cache table locks. _txlock=immediate makes write transactions take
// the write lock up front, which is what lets busy_timeout serialize them.
func newFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate", path)
	return openTestDB(t, dsn)
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTeacher(t *testing.T, db *gorm.DB, username string) *domain.Teacher {
	t.Helper()
	teacher := &domain.Teacher{Username: username, PasswordHash: "digest", Salt: "salt"}
	if err := NewTeacherRepository(db).Create(teacher); err != nil {
		t.Fatalf("seed teacher %s: %v", username, err)
	}
	return teacher
}
