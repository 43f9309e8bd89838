package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-podcast-backend/internal/repo"
	"github.com/tbourn/go-podcast-backend/internal/sysutil"
)

// StaleMessage is the error_message written onto jobs the sweeper fails.
const StaleMessage = "generation timed out"

// StaleSweeper fails jobs that stayed pending or generating for longer than
// After, and purges expired idempotency keys on the same schedule.
//
// Without it a job whose trigger was lost stays pending forever.
type StaleSweeper struct {
	DB       *gorm.DB
	After    time.Duration
	Interval time.Duration

	now func() time.Time
}

// NewStaleSweeper returns a sweeper; After <= 0 makes Run a no-op.
func NewStaleSweeper(db *gorm.DB, after, interval time.Duration) *StaleSweeper {
	return &StaleSweeper{DB: db, After: after, Interval: interval}
}

// Run sweeps every Interval until ctx is cancelled.
func (s *StaleSweeper) Run(ctx context.Context) {
	if s.After <= 0 || s.Interval <= 0 {
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				sysutil.Logger(ctx).Error().Err(err).Msg("stale sweep failed")
			}
		}
	}
}

// Sweep performs one pass and returns the number of jobs it failed.
func (s *StaleSweeper) Sweep(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	if s.now != nil {
		now = s.now()
	}
	n, err := repo.FailStalePodcasts(ctx, s.DB, now.Add(-s.After), StaleMessage)
	if err != nil {
		return 0, unavailable("fail stale podcasts", err)
	}
	lg := sysutil.Logger(ctx)
	if n > 0 {
		lg.Warn().Int64("count", n).Dur("after", s.After).Msg("failed stale podcast jobs")
	}
	if purged, err := repo.PurgeExpiredIdempotency(ctx, s.DB, now); err != nil {
		lg.Warn().Err(err).Msg("idempotency purge failed")
	} else if purged > 0 {
		lg.Debug().Int64("count", purged).Msg("purged expired idempotency keys")
	}
	return n, nil
}
