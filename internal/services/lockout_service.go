package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"
)

// LockoutRepository defines the ledger queries the lockout policy needs
type LockoutRepository interface {
	CountFailures(ctx context.Context, origin, resourceCode string, since time.Time) (int, error)
	CountFailuresByReason(ctx context.Context, origin, resourceCode, reason string, since time.Time) (int, error)
}

// LockoutDecision is the outcome of a lockout check. It is derived from the
// ledger on every call and never persisted.
type LockoutDecision struct {
	Allowed           bool
	AttemptsRemaining int
	// LockedUntil is set only when the strict threshold tripped. The loose
	// threshold deliberately carries no end time; callers get a generic
	// retry-later message for that branch.
	LockedUntil *time.Time
}

// LockoutService decides whether an (origin, resource) pair may attempt a
// login, using two counters over a trailing window: a strict one for
// failures with the canonical invalid-credential reason and a loose one for
// everything else.
type LockoutService struct {
	repo   LockoutRepository
	config config.LockoutConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo LockoutRepository, cfg config.LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		repo:   repo,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Check computes the lockout decision for an (origin, resource) pair. A
// ledger error fails closed: the caller records it and denies, never allows.
//
// Counting is read-then-append without isolation across requests, so the
// thresholds are best-effort limits under heavy concurrency.
func (s *LockoutService) Check(ctx context.Context, origin, resourceCode string) (LockoutDecision, error) {
	now := s.now()
	since := now.Add(-s.config.Window)
	strictReason := models.StrictFailureReason(resourceCode)

	strictFailures, err := s.repo.CountFailuresByReason(ctx, origin, resourceCode, strictReason, since)
	if err != nil {
		return LockoutDecision{}, fmt.Errorf("failed to count strict failures: %w", err)
	}

	totalFailures, err := s.repo.CountFailures(ctx, origin, resourceCode, since)
	if err != nil {
		return LockoutDecision{}, fmt.Errorf("failed to count failures: %w", err)
	}

	looseFailures := totalFailures - strictFailures
	if looseFailures < 0 {
		looseFailures = 0
	}

	if strictFailures >= s.config.StrictThreshold {
		// LockedUntil is recomputed from "now" on every call, so the window
		// re-arms while attempts keep coming.
		lockedUntil := now.Add(s.config.LockoutDuration)
		s.logger.Warn("origin locked out",
			slog.String("origin_address", origin),
			slog.String("resource_code", resourceCode),
			slog.Int("strict_failures", strictFailures))
		return LockoutDecision{Allowed: false, AttemptsRemaining: 0, LockedUntil: &lockedUntil}, nil
	}

	if looseFailures >= s.config.LooseThreshold {
		s.logger.Warn("origin locked out without window",
			slog.String("origin_address", origin),
			slog.String("resource_code", resourceCode),
			slog.Int("loose_failures", looseFailures))
		return LockoutDecision{Allowed: false, AttemptsRemaining: 0}, nil
	}

	remaining := s.config.StrictThreshold - strictFailures
	if looseRemaining := s.config.LooseThreshold - looseFailures; looseRemaining < remaining {
		remaining = looseRemaining
	}
	if remaining < 0 {
		remaining = 0
	}

	return LockoutDecision{Allowed: true, AttemptsRemaining: remaining}, nil
}

// FormatDecision renders a lockout decision for end users. It is a pure
// function of the decision and the reference instant.
func FormatDecision(d LockoutDecision, now time.Time) string {
	if !d.Allowed {
		if d.LockedUntil != nil {
			return fmt.Sprintf("Too many failed attempts. Try again in %s.", formatWait(d.LockedUntil.Sub(now)))
		}
		// The loose branch has no expiry to report
		return "Too many failed attempts. Please try again later."
	}

	if d.AttemptsRemaining == 1 {
		return "Incorrect password. This is your last attempt before a temporary lockout."
	}
	return fmt.Sprintf("Incorrect password. %d attempts remaining.", d.AttemptsRemaining)
}

// formatWait renders a duration as "N hour(s) M minute(s)", rounding up to
// whole minutes so the user never retries too early.
func formatWait(d time.Duration) string {
	minutes := int(math.Ceil(d.Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	hours := minutes / 60
	minutes = minutes % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%s %s", plural(hours, "hour"), plural(minutes, "minute"))
	case hours > 0:
		return plural(hours, "hour")
	default:
		return plural(minutes, "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
