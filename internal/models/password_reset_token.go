package models

import "time"

// PasswordResetToken stores hashed reset capabilities for both account kinds.
// An expired or used token is treated as absent.
type PasswordResetToken struct {
	BaseModel

	AccountKind AccountKind `gorm:"not null;index" json:"account_kind"`
	AccountID   string      `gorm:"type:uuid;not null;index" json:"account_id"`
	TokenHash   string      `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt   time.Time   `gorm:"index" json:"expires_at"`
	UsedAt      *time.Time  `json:"used_at"`
}
