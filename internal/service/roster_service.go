package service

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/observability"
	"github.com/teacherportal/marks-portal-service/internal/repository"
)

// RosterService validates and applies student mutations for a teacher,
// including the merge-or-create rule for a repeated (name, subject) pair.
// Every mutation is transactional in the repository and audited here; reads
// are not audited.
type RosterService struct {
	students repository.StudentRepository
	audit    *AuditTrail
}

func NewRosterService(students repository.StudentRepository, audit *AuditTrail) *RosterService {
	return &RosterService{students: students, audit: audit}
}

// AddOrMergeStudent reports whether a new record was created; a false
// result means the marks were merged into an existing one.
func (s *RosterService) AddOrMergeStudent(ctx context.Context, teacherID uint, name, subject string, marks int, ip string) (*domain.Student, bool, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, false, err
	}
	subject, err = ValidateSubject(subject)
	if err != nil {
		return nil, false, err
	}
	if err := ValidateMarks(marks); err != nil {
		return nil, false, err
	}

	student, outcome, err := s.students.MergeOrCreate(teacherID, name, subject, marks)
	if err != nil {
		if errors.Is(err, repository.ErrMergeConflict) {
			observability.RecordRosterMutation(ctx, "merge", "conflict")
			return nil, false, ErrDuplicateRace
		}
		observability.RecordRosterMutation(ctx, "merge", "error")
		return nil, false, err
	}

	entry := domain.AuditEntry{
		TeacherID:   uintPtr(teacherID),
		TargetID:    uintPtr(student.ID),
		StudentName: student.Name,
		Subject:     student.Subject,
		NewMarks:    intPtr(student.Marks),
		IP:          ip,
	}
	if outcome.Created {
		observability.RecordRosterMutation(ctx, "create", "success")
		entry.Action = domain.AuditActionCreateStudent
	} else {
		observability.RecordRosterMutation(ctx, "merge", "success")
		entry.Action = domain.AuditActionMergeMarks
		entry.OldMarks = intPtr(outcome.OldMarks)
		entry.Detail = fmt.Sprintf("merged %d marks into existing record", marks)
	}
	s.audit.Record(ctx, entry)
	return student, outcome.Created, nil
}

func (s *RosterService) UpdateMarks(ctx context.Context, teacherID, studentID uint, marks int, ip string) (*domain.Student, error) {
	if err := ValidateMarks(marks); err != nil {
		return nil, err
	}

	student, oldMarks, err := s.students.UpdateMarksForTeacher(teacherID, studentID, marks)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			observability.RecordRosterMutation(ctx, "update", "not_found")
			return nil, ErrNotFound
		}
		observability.RecordRosterMutation(ctx, "update", "error")
		return nil, err
	}

	observability.RecordRosterMutation(ctx, "update", "success")
	s.audit.Record(ctx, domain.AuditEntry{
		TeacherID:   uintPtr(teacherID),
		Action:      domain.AuditActionUpdateMarks,
		TargetID:    uintPtr(student.ID),
		StudentName: student.Name,
		Subject:     student.Subject,
		OldMarks:    intPtr(oldMarks),
		NewMarks:    intPtr(student.Marks),
		IP:          ip,
	})
	return student, nil
}

func (s *RosterService) DeleteStudent(ctx context.Context, teacherID, studentID uint, ip string) error {
	student, err := s.students.DeleteForTeacher(teacherID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			observability.RecordRosterMutation(ctx, "delete", "not_found")
			return ErrNotFound
		}
		observability.RecordRosterMutation(ctx, "delete", "error")
		return err
	}

	observability.RecordRosterMutation(ctx, "delete", "success")
	s.audit.Record(ctx, domain.AuditEntry{
		TeacherID:   uintPtr(teacherID),
		Action:      domain.AuditActionDeleteStudent,
		TargetID:    uintPtr(student.ID),
		StudentName: student.Name,
		Subject:     student.Subject,
		OldMarks:    intPtr(student.Marks),
		IP:          ip,
	})
	return nil
}

// ListStudents is read-only and unaudited; only mutating and
// security-relevant actions reach the trail.
func (s *RosterService) ListStudents(teacherID uint) iter.Seq2[domain.Student, error] {
	return s.students.ListByTeacher(teacherID)
}
