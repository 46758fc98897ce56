package repository

import (
	"context"
	"errors"
	"iter"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	// ErrMergeConflict reports a duplicate-key race that survived the
	// single in-place retry of MergeOrCreate.
	ErrMergeConflict = errors.New("merge conflict on student key")
)

// MergeOutcome describes what MergeOrCreate did: a fresh insert or an
// in-place merge, with the marks arithmetic for the audit trail.
type MergeOutcome struct {
	Created  bool
	OldMarks int
	NewMarks int
}

type StudentRepository interface {
	// MergeOrCreate inserts a Student for (teacherID, name, subject) or,
	// when the row already exists, adds marks to it clamped to
	// domain.MaxMarks. The whole decision runs inside one transaction
	// with the existing row locked, so concurrent calls for the same key
	// serialize; an insert race surfaced as a duplicate-key error is
	// retried once against the now-visible row.
	MergeOrCreate(teacherID uint, name, subject string, marks int) (*domain.Student, MergeOutcome, error)
	UpdateMarksForTeacher(teacherID, studentID uint, marks int) (*domain.Student, int, error)
	DeleteForTeacher(teacherID, studentID uint) (*domain.Student, error)
	// ListByTeacher returns a restartable sequence ordered by
	// (name, subject); every range over it runs a fresh query.
	ListByTeacher(teacherID uint) iter.Seq2[domain.Student, error]
}

type GormStudentRepository struct{ db *gorm.DB }

func NewStudentRepository(db *gorm.DB) StudentRepository { return &GormStudentRepository{db: db} }

func (r *GormStudentRepository) MergeOrCreate(teacherID uint, name, subject string, marks int) (*domain.Student, MergeOutcome, error) {
	student, outcome, err := r.mergeOnce(teacherID, name, subject, marks)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the insert race; the competing row is committed and
		// visible now, so one retry merges into it.
		student, outcome, err = r.mergeOnce(teacherID, name, subject, marks)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "student", "merge_or_create", "conflict")
			return nil, MergeOutcome{}, ErrMergeConflict
		}
	}
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "student", "merge_or_create", "error")
		return nil, MergeOutcome{}, err
	}
	observability.RecordRepositoryOperation(context.Background(), "student", "merge_or_create", "success")
	return student, outcome, nil
}

func (r *GormStudentRepository) mergeOnce(teacherID uint, name, subject string, marks int) (*domain.Student, MergeOutcome, error) {
	var student domain.Student
	var outcome MergeOutcome
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.Student
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("teacher_id = ? AND name = ? AND subject = ?", teacherID, name, subject).
			First(&existing).Error
		if err == nil {
			merged := existing.Marks + marks
			if merged > domain.MaxMarks {
				merged = domain.MaxMarks
			}
			if err := tx.Model(&domain.Student{}).
				Where("id = ?", existing.ID).
				Update("marks", merged).Error; err != nil {
				return err
			}
			outcome = MergeOutcome{Created: false, OldMarks: existing.Marks, NewMarks: merged}
			existing.Marks = merged
			student = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		fresh := domain.Student{TeacherID: teacherID, Name: name, Subject: subject, Marks: marks}
		if err := tx.Create(&fresh).Error; err != nil {
			return err
		}
		outcome = MergeOutcome{Created: true, NewMarks: marks}
		student = fresh
		return nil
	})
	if err != nil {
		return nil, MergeOutcome{}, err
	}
	return &student, outcome, nil
}

func (r *GormStudentRepository) UpdateMarksForTeacher(teacherID, studentID uint, marks int) (*domain.Student, int, error) {
	var student domain.Student
	var oldMarks int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("teacher_id = ? AND id = ?", teacherID, studentID).
			First(&student).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}
		oldMarks = student.Marks
		if err := tx.Model(&domain.Student{}).
			Where("id = ?", student.ID).
			Update("marks", marks).Error; err != nil {
			return err
		}
		student.Marks = marks
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStudentNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "student", "update_marks", "not_found")
		} else {
			observability.RecordRepositoryOperation(context.Background(), "student", "update_marks", "error")
		}
		return nil, 0, err
	}
	observability.RecordRepositoryOperation(context.Background(), "student", "update_marks", "success")
	return &student, oldMarks, nil
}

func (r *GormStudentRepository) DeleteForTeacher(teacherID, studentID uint) (*domain.Student, error) {
	var student domain.Student
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("teacher_id = ? AND id = ?", teacherID, studentID).
			First(&student).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return err
		}
		return tx.Delete(&domain.Student{}, student.ID).Error
	})
	if err != nil {
		if errors.Is(err, ErrStudentNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "student", "delete", "not_found")
		} else {
			observability.RecordRepositoryOperation(context.Background(), "student", "delete", "error")
		}
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "student", "delete", "success")
	return &student, nil
}

func (r *GormStudentRepository) ListByTeacher(teacherID uint) iter.Seq2[domain.Student, error] {
	return func(yield func(domain.Student, error) bool) {
		rows, err := r.db.Model(&domain.Student{}).
			Where("teacher_id = ?", teacherID).
			Order("name, subject").
			Rows()
		if err != nil {
			observability.RecordRepositoryOperation(context.Background(), "student", "list", "error")
			yield(domain.Student{}, err)
			return
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var s domain.Student
			if err := r.db.ScanRows(rows, &s); err != nil {
				yield(domain.Student{}, err)
				return
			}
			if !yield(s, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Student{}, err)
			return
		}
		observability.RecordRepositoryOperation(context.Background(), "student", "list", "success")
	}
}
