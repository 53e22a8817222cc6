package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/observability/metrics"
)

// LockSweeper periodically clears expired login lockouts so their
// failure counters do not linger past the lockout window.
type LockSweeper struct {
	users    domain.UserRepository
	logger   *slog.Logger
	interval time.Duration
}

// NewLockSweeper creates a new lock sweeper
func NewLockSweeper(users domain.UserRepository, logger *slog.Logger, interval time.Duration) *LockSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockSweeper{
		users:    users,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the sweep loop. It runs until the context is canceled.
func (w *LockSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("lock sweeper started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("lock sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep clears every lock whose window has passed
func (w *LockSweeper) sweep(ctx context.Context) {
	now := time.Now()

	if locked, err := w.users.CountLocked(ctx, now); err == nil {
		metrics.SetLockedAccounts(locked)
	}

	expired, err := w.users.ListLockExpired(ctx, now)
	if err != nil {
		w.logger.Error("failed to list expired locks",
			slog.String("error", err.Error()),
		)
		metrics.RecordLockSweep("error")
		return
	}
	if len(expired) == 0 {
		return
	}

	cleared := 0
	for _, user := range expired {
		if err := w.users.ClearLock(ctx, user.ID); err != nil {
			w.logger.Error("failed to clear expired lock",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			metrics.RecordLockSweep("error")
			continue
		}
		cleared++
		metrics.RecordLockSweep("cleared")
	}

	w.logger.Info("expired locks cleared",
		slog.Int("expired", len(expired)),
		slog.Int("cleared", cleared),
	)
}
