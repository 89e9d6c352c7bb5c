package service

import (
	"context"
	"time"

	"tokensmith/internal/entity"
	"tokensmith/internal/repository"

	"github.com/google/uuid"
)

// IssuanceLimiter counts recent successful issuances per (user, kind) over a
// sliding window. It only reads; recording an issuance is the issuer's job.
// The count is eventually-consistent on purpose: a racing extra request
// slipping through the window is throttling noise, not a security boundary.
type IssuanceLimiter struct {
	records repository.RateLimitRepository
	limit   int
	window  time.Duration
}

func NewIssuanceLimiter(records repository.RateLimitRepository, limit int, window time.Duration) *IssuanceLimiter {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = time.Hour
	}
	return &IssuanceLimiter{records: records, limit: limit, window: window}
}

func (l *IssuanceLimiter) Allow(ctx context.Context, userID uuid.UUID, kind entity.TokenKind, now time.Time) (bool, error) {
	count, err := l.records.CountSince(ctx, userID, kind, now.Add(-l.window))
	if err != nil {
		return false, err
	}
	return count < int64(l.limit), nil
}

func (l *IssuanceLimiter) withRecords(records repository.RateLimitRepository) *IssuanceLimiter {
	return &IssuanceLimiter{records: records, limit: l.limit, window: l.window}
}
