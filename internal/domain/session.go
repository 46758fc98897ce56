package domain

import "time"

const (
	SessionRevokedLogout  = "logout"
	SessionRevokedExpired = "expired"
	SessionRevokedRotated = "superseded_by_login"
)

// SessionToken is an opaque server-side session. Expiry is sliding: every
// successful validation pushes ExpiresAt forward by the configured TTL.
type SessionToken struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TeacherID     uint       `gorm:"index;not null" json:"teacher_id"`
	Token         string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	IP            string     `gorm:"size:64" json:"ip"`
	ExpiresAt     time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt     *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	RevokedReason *string    `gorm:"size:64" json:"revoked_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
