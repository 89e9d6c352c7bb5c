package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RateLimitRecord tracks one successful issuance. The limiter counts recent
// rows per (user, kind); denied attempts never produce a row.
type RateLimitRecord struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_rate_user_kind"`

	Kind        TokenKind `gorm:"type:varchar(32);not null;index:idx_rate_user_kind"`
	RequestedAt time.Time `gorm:"not null;index"`
}

func (r *RateLimitRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
