package repository

import (
	"context"
	"testing"
	"time"

	"tokensmith/internal/entity"
)

func TestTokenRepositoryConsumeSpendsUses(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user := seedUser(t, db, "consume@example.com")
	token := &entity.Token{
		UserID:    user.ID,
		TokenHash: "hash-consume",
		Kind:      entity.KindEmailVerify,
		ExpiresAt: now.Add(30 * time.Minute),
		MaxUses:   3,
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := repo.Consume(ctx, "hash-consume", entity.KindEmailVerify, now)
		if err != nil {
			t.Fatalf("consume %d: %v", want, err)
		}
		if got == nil {
			t.Fatalf("consume %d: expected token, got nil", want)
		}
		if got.UseCount != want {
			t.Fatalf("consume %d: use_count = %d", want, got.UseCount)
		}
		if got.IsUsed != (want == 3) {
			t.Fatalf("consume %d: is_used = %v", want, got.IsUsed)
		}
	}

	got, err := repo.Consume(ctx, "hash-consume", entity.KindEmailVerify, now)
	if err != nil {
		t.Fatalf("exhausted consume: %v", err)
	}
	if got != nil {
		t.Fatalf("expected exhausted token to be rejected, got %+v", got)
	}
}

func TestTokenRepositoryConsumeRejectsExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user := seedUser(t, db, "expired@example.com")
	token := &entity.Token{
		UserID:    user.ID,
		TokenHash: "hash-expired",
		Kind:      entity.KindPasswordReset,
		ExpiresAt: now.Add(-time.Minute),
		MaxUses:   3,
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := repo.Consume(ctx, "hash-expired", entity.KindPasswordReset, now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired token to be rejected, got %+v", got)
	}

	// No state change on rejection.
	stored, err := repo.FindByHash(ctx, "hash-expired", entity.KindPasswordReset)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.UseCount != 0 || stored.IsUsed {
		t.Fatalf("rejected consume mutated token: %+v", stored)
	}
}

func TestTokenRepositoryConsumeRespectsKind(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user := seedUser(t, db, "kind@example.com")
	token := &entity.Token{
		UserID:    user.ID,
		TokenHash: "hash-kind",
		Kind:      entity.KindEmailVerify,
		ExpiresAt: now.Add(time.Hour),
		MaxUses:   1,
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}

	got, err := repo.Consume(ctx, "hash-kind", entity.KindPasswordReset, now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != nil {
		t.Fatalf("expected wrong-kind lookup to miss, got %+v", got)
	}
}

func TestTokenRepositorySingleUseConsumedOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user := seedUser(t, db, "single@example.com")
	token := &entity.Token{
		UserID:    user.ID,
		TokenHash: "hash-single",
		Kind:      entity.KindPasswordReset,
		ExpiresAt: now.Add(time.Hour),
		MaxUses:   1,
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("create token: %v", err)
	}

	applied := 0
	for i := 0; i < 5; i++ {
		got, err := repo.Consume(ctx, "hash-single", entity.KindPasswordReset, now)
		if err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		if got != nil {
			applied++
		}
	}
	if applied != 1 {
		t.Fatalf("single-use token applied %d times", applied)
	}
}

func TestTokenRepositoryDeleteExpiredUnused(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	user := seedUser(t, db, "janitor@example.com")
	expiredUnused := &entity.Token{
		UserID: user.ID, TokenHash: "hash-sweep", Kind: entity.KindEmailVerify,
		ExpiresAt: now.Add(-time.Hour), MaxUses: 3,
	}
	expiredUsed := &entity.Token{
		UserID: user.ID, TokenHash: "hash-keep-used", Kind: entity.KindEmailVerify,
		ExpiresAt: now.Add(-time.Hour), MaxUses: 1, UseCount: 1, IsUsed: true,
	}
	live := &entity.Token{
		UserID: user.ID, TokenHash: "hash-keep-live", Kind: entity.KindPasswordReset,
		ExpiresAt: now.Add(time.Hour), MaxUses: 3,
	}
	for _, tok := range []*entity.Token{expiredUnused, expiredUsed, live} {
		if err := repo.Create(ctx, tok); err != nil {
			t.Fatalf("create %s: %v", tok.TokenHash, err)
		}
	}

	deleted, err := repo.DeleteExpiredUnused(ctx, now)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted %d tokens, want 1", deleted)
	}

	var remaining []entity.Token
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("remaining tokens = %d, want 2", len(remaining))
	}
	for _, tok := range remaining {
		if tok.TokenHash == "hash-sweep" {
			t.Fatalf("expired unused token survived the sweep")
		}
	}
}
