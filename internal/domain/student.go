package domain

import "time"

// Marks bounds, inclusive. Merged totals are clamped to MaxMarks.
const (
	MinMarks = 0
	MaxMarks = 100
)

// Student rows are unique per (teacher, name, subject); the composite index
// is what the merge path in repository.StudentRepository relies on to detect
// concurrent inserts of the same key.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeacherID uint      `gorm:"index;not null;uniqueIndex:idx_students_teacher_name_subject" json:"-"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_students_teacher_name_subject" json:"name"`
	Subject   string    `gorm:"size:100;not null;uniqueIndex:idx_students_teacher_name_subject" json:"subject"`
	Marks     int       `gorm:"not null" json:"marks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
