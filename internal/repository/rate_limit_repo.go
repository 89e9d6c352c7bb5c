package repository

import (
	"context"
	"time"

	"tokensmith/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RateLimitRepository interface {
	CountSince(ctx context.Context, userID uuid.UUID, kind entity.TokenKind, since time.Time) (int64, error)
	Record(ctx context.Context, record *entity.RateLimitRecord) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx *gorm.DB) RateLimitRepository
}

type rateLimitRepository struct {
	db *gorm.DB
}

func NewRateLimitRepository(db *gorm.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) WithTx(tx *gorm.DB) RateLimitRepository {
	return &rateLimitRepository{db: tx}
}

func (r *rateLimitRepository) CountSince(
	ctx context.Context,
	userID uuid.UUID,
	kind entity.TokenKind,
	since time.Time,
) (int64, error) {

	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RateLimitRecord{}).
		Where("user_id = ? AND kind = ? AND requested_at >= ?", userID, kind, since).
		Count(&count).Error
	return count, err
}

func (r *rateLimitRepository) Record(ctx context.Context, record *entity.RateLimitRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *rateLimitRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("requested_at < ?", cutoff).
		Delete(&entity.RateLimitRecord{})
	return result.RowsAffected, result.Error
}
