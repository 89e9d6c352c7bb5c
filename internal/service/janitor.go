package service

import (
	"context"
	"time"

	"tokensmith/internal/repository"

	"github.com/sirupsen/logrus"
)

// Janitor prunes expired, never-fully-used tokens and stale rate records on
// a fixed interval. It runs outside any request path; each delete is
// idempotent and independently safe, so there is no transaction across them.
// The delete predicates match the validity predicate, so a live token is
// never swept. Audit rows are not touched.
type Janitor struct {
	tokens repository.TokenRepository
	rates  repository.RateLimitRepository
	logger *logrus.Logger
	clock  Clock

	interval  time.Duration
	retention time.Duration
}

func NewJanitor(
	tokens repository.TokenRepository,
	rates repository.RateLimitRepository,
	logger *logrus.Logger,
	clock Clock,
	interval time.Duration,
	retention time.Duration,
) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 48 * time.Hour
	}
	return &Janitor{
		tokens:    tokens,
		rates:     rates,
		logger:    logger,
		clock:     clock,
		interval:  interval,
		retention: retention,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Sweep(ctx); err != nil {
				j.log().WithError(err).Error("janitor sweep failed")
			}
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) error {
	now := j.now()

	deletedTokens, err := j.tokens.DeleteExpiredUnused(ctx, now)
	if err != nil {
		return err
	}

	deletedRates, err := j.rates.DeleteBefore(ctx, now.Add(-j.retention))
	if err != nil {
		return err
	}

	j.log().WithFields(logrus.Fields{
		"tokens":       deletedTokens,
		"rate_records": deletedRates,
	}).Info("janitor sweep complete")
	return nil
}

func (j *Janitor) log() *logrus.Logger {
	if j.logger == nil {
		return logrus.StandardLogger()
	}
	return j.logger
}

func (j *Janitor) now() time.Time {
	if j.clock == nil {
		return time.Now()
	}
	return j.clock.Now()
}
