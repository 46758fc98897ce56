package repository

import (
	"fmt"

	"github.com/teacherportal/marks-portal-service/internal/config"
	"github.com/teacherportal/marks-portal-service/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. TranslateError is required: the
// merge path depends on gorm.ErrDuplicatedKey to detect a lost insert race on
// the (teacher, name, subject) unique key.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Teacher{},
		&domain.Student{},
		&domain.SessionToken{},
		&domain.AuditEntry{},
	); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
