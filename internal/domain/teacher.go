package domain

import "time"

type Teacher struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:64;not null" json:"-"`
	Salt         string    `gorm:"size:64;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
