package domain

import "time"

const (
	AuditActionLogin         = "login"
	AuditActionLoginFailed   = "login_failed"
	AuditActionLogout        = "logout"
	AuditActionAccessDenied  = "access_denied"
	AuditActionCreateStudent = "create_student"
	AuditActionMergeMarks    = "merge_marks"
	AuditActionUpdateMarks   = "update_marks"
	AuditActionDeleteStudent = "delete_student"
)

// AuditEntry is append-only. TeacherID is nil for failed logins against
// unknown usernames; TargetID names the student a mutation touched.
type AuditEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TeacherID   *uint     `gorm:"index" json:"teacher_id,omitempty"`
	Action      string    `gorm:"size:50;index;not null" json:"action"`
	TargetID    *uint     `gorm:"index" json:"target_id,omitempty"`
	StudentName string    `gorm:"size:100" json:"student_name,omitempty"`
	Subject     string    `gorm:"size:100" json:"subject,omitempty"`
	OldMarks    *int      `json:"old_marks,omitempty"`
	NewMarks    *int      `json:"new_marks,omitempty"`
	IP          string    `gorm:"size:64" json:"ip"`
	Detail      string    `gorm:"size:512" json:"detail,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
