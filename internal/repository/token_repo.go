package repository

import (
	"context"
	"errors"
	"time"

	"tokensmith/internal/entity"

	"gorm.io/gorm"
)

type TokenRepository interface {
	Create(ctx context.Context, token *entity.Token) error
	FindByHash(ctx context.Context, tokenHash string, kind entity.TokenKind) (*entity.Token, error)
	Consume(ctx context.Context, tokenHash string, kind entity.TokenKind, now time.Time) (*entity.Token, error)
	DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error)
	WithTx(tx *gorm.DB) TokenRepository
}

type tokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) WithTx(tx *gorm.DB) TokenRepository {
	return &tokenRepository{db: tx}
}

func (r *tokenRepository) Create(ctx context.Context, t *entity.Token) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *tokenRepository) FindByHash(
	ctx context.Context,
	tokenHash string,
	kind entity.TokenKind,
) (*entity.Token, error) {

	var token entity.Token
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND kind = ?", tokenHash, kind).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Consume spends one use of a live token in a single conditional UPDATE.
// The WHERE clause carries the full validity predicate, so two racing calls
// on a token with one use left cannot both get past it; the loser affects
// zero rows and is reported as not found (nil, nil).
func (r *tokenRepository) Consume(
	ctx context.Context,
	tokenHash string,
	kind entity.TokenKind,
	now time.Time,
) (*entity.Token, error) {

	result := r.db.WithContext(ctx).
		Model(&entity.Token{}).
		Where(`
			token_hash = ? AND
			kind = ? AND
			is_used = ? AND
			expires_at > ? AND
			use_count < max_uses
		`, tokenHash, kind, false, now).
		Updates(map[string]any{
			"use_count": gorm.Expr("use_count + 1"),
			"is_used":   gorm.Expr("use_count + 1 >= max_uses"),
		})

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByHash(ctx, tokenHash, kind)
}

func (r *tokenRepository) DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? AND is_used = ?", now, false).
		Delete(&entity.Token{})
	return result.RowsAffected, result.Error
}
