package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is owned by the surrounding system; this service only reads id and
// email and mutates verified_at / password_hash.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash *string   `gorm:"type:text"`

	VerifiedAt *time.Time
	IsActive   bool `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
