package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TokenKind string

const (
	KindEmailVerify   TokenKind = "email_verify"
	KindPasswordReset TokenKind = "password_reset"
)

type Token struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	User   User      `gorm:"constraint:OnDelete:CASCADE"`

	// Only a SHA-256 hash of the raw token is ever stored.
	TokenHash string    `gorm:"type:text;not null;uniqueIndex"`
	Kind      TokenKind `gorm:"type:varchar(32);not null;index"`

	ExpiresAt time.Time
	UseCount  int  `gorm:"not null;default:0"`
	MaxUses   int  `gorm:"not null;default:1"`
	IsUsed    bool `gorm:"not null;default:false"`

	CreatedAt time.Time
}

func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Valid reports whether the token can still be consumed at the given instant.
func (t *Token) Valid(now time.Time) bool {
	return !t.IsUsed && t.ExpiresAt.After(now) && t.UseCount < t.MaxUses
}
