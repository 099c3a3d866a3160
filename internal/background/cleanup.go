package background

import (
	"context"
	"log/slog"
	"time"
)

// CredentialCleaner removes expired credentials.
type CredentialCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// AttemptPruner removes ledger rows past the retention horizon.
type AttemptPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor periodically removes expired credentials and prunes the attempt
// ledger. Expiry checks at login time never depend on it; it only reclaims
// storage.
type Janitor struct {
	credentials CredentialCleaner
	attempts    AttemptPruner
	retention   time.Duration
	interval    time.Duration
	logger      *slog.Logger
	stopCh      chan struct{}
}

// NewJanitor creates a new Janitor
func NewJanitor(
	credentials CredentialCleaner,
	attempts AttemptPruner,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *Janitor {
	return &Janitor{
		credentials: credentials,
		attempts:    attempts,
		retention:   retention,
		interval:    interval,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on startup
	j.run(ctx)

	for {
		select {
		case <-ticker.C:
			j.run(ctx)
		case <-j.stopCh:
			j.logger.Info("janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		}
	}
}

func (j *Janitor) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := j.credentials.CleanupExpired(runCtx)
	if err != nil {
		j.logger.Error("failed to clean up expired credentials", slog.Any("error", err))
	} else if removed > 0 {
		j.logger.Info("expired credentials removed", slog.Int64("count", removed))
	}

	// The ledger keeps every attempt for the retention window, then lets go.
	// Lockout counting only ever looks one hour back, so pruning is safe.
	cutoff := time.Now().Add(-j.retention)
	pruned, err := j.attempts.DeleteOlderThan(runCtx, cutoff)
	if err != nil {
		j.logger.Error("failed to prune attempt ledger", slog.Any("error", err))
	} else if pruned > 0 {
		j.logger.Info("attempt ledger pruned", slog.Int64("count", pruned))
	}
}

// Stop signals the janitor to stop
func (j *Janitor) Stop() {
	close(j.stopCh)
}
