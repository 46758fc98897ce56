package repository

import (
	"context"
	"errors"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/observability"

	"gorm.io/gorm"
)

var ErrTeacherNotFound = errors.New("teacher not found")

type TeacherRepository interface {
	Create(teacher *domain.Teacher) error
	FindByID(id uint) (*domain.Teacher, error)
	FindByUsername(username string) (*domain.Teacher, error)
}

type GormTeacherRepository struct{ db *gorm.DB }

func NewTeacherRepository(db *gorm.DB) TeacherRepository { return &GormTeacherRepository{db: db} }

func (r *GormTeacherRepository) Create(teacher *domain.Teacher) error {
	err := r.db.Create(teacher).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "teacher", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "teacher", "create", "success")
	return nil
}

func (r *GormTeacherRepository) FindByID(id uint) (*domain.Teacher, error) {
	var t domain.Teacher
	err := r.db.First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "teacher", "find_by_id", "not_found")
			return nil, ErrTeacherNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "teacher", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "teacher", "find_by_id", "success")
	return &t, nil
}

func (r *GormTeacherRepository) FindByUsername(username string) (*domain.Teacher, error) {
	var t domain.Teacher
	err := r.db.Where("username = ?", username).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "teacher", "find_by_username", "not_found")
			return nil, ErrTeacherNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "teacher", "find_by_username", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "teacher", "find_by_username", "success")
	return &t, nil
}
