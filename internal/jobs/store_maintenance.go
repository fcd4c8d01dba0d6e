package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quickscribe/internal/logging"
)

// EvictTerminalBefore removes completed and failed jobs last updated before
// the cutoff. Pending and processing jobs are never evicted.
func (s *Store) EvictTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?) AND updated_at < ?`,
		StatusCompleted,
		StatusFailed,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("evict terminal jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetentionSweeper periodically evicts terminal jobs older than the retention
// window so the store does not grow without bound.
type RetentionSweeper struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewRetentionSweeper builds a sweeper for the given store. Non-positive
// durations fall back to a 24h window swept hourly.
func NewRetentionSweeper(store *Store, retention, interval time.Duration, logger *slog.Logger) *RetentionSweeper {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logging.NewComponentLogger(logger, "retention"),
	}
}

// Run blocks until the context is cancelled, sweeping on each tick.
func (r *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *RetentionSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.retention)
	removed, err := r.store.EvictTerminalBefore(ctx, cutoff)
	if err != nil {
		r.logger.Warn("retention sweep failed", logging.Error(err))
		return
	}
	if removed > 0 {
		r.logger.Info("evicted terminal jobs",
			logging.Int64("removed", removed),
			logging.Duration("retention", r.retention))
	}
}
