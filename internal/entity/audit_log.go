package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditAction string

const (
	TokenIssued   AuditAction = "token_issued"
	EmailVerified AuditAction = "email_verified"
	PasswordReset AuditAction = "password_reset"
)

// AuditLog rows are append-only. Nothing in the normal flow updates or
// deletes them, and the janitor leaves them alone.
type AuditLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`
	User   *User      `gorm:"constraint:OnDelete:SET NULL"`

	Action      AuditAction `gorm:"type:varchar(32);not null"`
	Description string      `gorm:"type:text"`

	Metadata datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
