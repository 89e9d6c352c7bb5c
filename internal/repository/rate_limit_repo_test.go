package repository

import (
	"context"
	"testing"
	"time"

	"tokensmith/internal/entity"

	"github.com/google/uuid"
)

func TestRateLimitRepositoryCountSince(t *testing.T) {
	db := newTestDB(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := uuid.New()
	otherID := uuid.New()

	records := []*entity.RateLimitRecord{
		{UserID: userID, Kind: entity.KindEmailVerify, RequestedAt: now.Add(-10 * time.Minute)},
		{UserID: userID, Kind: entity.KindEmailVerify, RequestedAt: now.Add(-59 * time.Minute)},
		{UserID: userID, Kind: entity.KindEmailVerify, RequestedAt: now.Add(-2 * time.Hour)},
		{UserID: userID, Kind: entity.KindPasswordReset, RequestedAt: now.Add(-5 * time.Minute)},
		{UserID: otherID, Kind: entity.KindEmailVerify, RequestedAt: now.Add(-5 * time.Minute)},
	}
	for _, rec := range records {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	count, err := repo.CountSince(ctx, userID, entity.KindEmailVerify, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2 (window excludes old rows, other kinds and other users)", count)
	}
}

func TestRateLimitRepositoryDeleteBefore(t *testing.T) {
	db := newTestDB(t)
	repo := NewRateLimitRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	userID := uuid.New()
	old := &entity.RateLimitRecord{UserID: userID, Kind: entity.KindEmailVerify, RequestedAt: now.Add(-72 * time.Hour)}
	fresh := &entity.RateLimitRecord{UserID: userID, Kind: entity.KindEmailVerify, RequestedAt: now.Add(-time.Hour)}
	for _, rec := range []*entity.RateLimitRecord{old, fresh} {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	deleted, err := repo.DeleteBefore(ctx, now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted %d records, want 1", deleted)
	}

	count, err := repo.CountSince(ctx, userID, entity.KindEmailVerify, now.Add(-96*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("remaining records = %d, want 1", count)
	}
}
