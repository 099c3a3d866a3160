package services_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"
	"gatehouse/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLockoutRepo implements LockoutRepository with fixed counts
type mockLockoutRepo struct {
	byReason map[string]int
	total    int
	err      error
}

func (m *mockLockoutRepo) CountFailures(ctx context.Context, origin, resourceCode string, since time.Time) (int, error) {
	return m.total, m.err
}

func (m *mockLockoutRepo) CountFailuresByReason(ctx context.Context, origin, resourceCode, reason string, since time.Time) (int, error) {
	return m.byReason[reason], m.err
}

func defaultLockoutConfig() config.LockoutConfig {
	return config.LockoutConfig{
		StrictThreshold: 5,
		LooseThreshold:  10,
		Window:          1 * time.Hour,
		LockoutDuration: 1 * time.Hour,
	}
}

func newLockoutService(repo *mockLockoutRepo) *services.LockoutService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return services.NewLockoutService(repo, defaultLockoutConfig(), logger)
}

func TestLockoutCheck_AllowsBelowStrictThreshold(t *testing.T) {
	for n := 0; n <= 4; n++ {
		repo := &mockLockoutRepo{
			byReason: map[string]int{models.ReasonInvalidAdminCredential: n},
			total:    n,
		}
		service := newLockoutService(repo)

		decision, err := service.Check(context.Background(), "203.0.113.7", models.ResourceAdmin)

		require.NoError(t, err)
		assert.True(t, decision.Allowed, "n=%d", n)
		assert.Equal(t, 5-n, decision.AttemptsRemaining, "n=%d", n)
		assert.Nil(t, decision.LockedUntil, "n=%d", n)
	}
}

func TestLockoutCheck_StrictThresholdTrips(t *testing.T) {
	repo := &mockLockoutRepo{
		byReason: map[string]int{models.ReasonInvalidAdminCredential: 5},
		total:    5,
	}
	service := newLockoutService(repo)

	decision, err := service.Check(context.Background(), "203.0.113.7", models.ResourceAdmin)

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.AttemptsRemaining)
	require.NotNil(t, decision.LockedUntil)
	assert.WithinDuration(t, time.Now().Add(1*time.Hour), *decision.LockedUntil, 5*time.Second)
}

func TestLockoutCheck_LooseThresholdTripsWithoutWindow(t *testing.T) {
	repo := &mockLockoutRepo{
		byReason: map[string]int{models.ReasonInvalidCredentialHash: 0},
		total:    10, // all failures with non-strict reasons
	}
	service := newLockoutService(repo)

	decision, err := service.Check(context.Background(), "203.0.113.7", "gallery")

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.AttemptsRemaining)
	// The loose branch intentionally reports no lockout expiry
	assert.Nil(t, decision.LockedUntil)
}

func TestLockoutCheck_MixedReasons(t *testing.T) {
	// 3 strict + 6 loose failures: remaining = min(5-3, 10-6) = 2
	repo := &mockLockoutRepo{
		byReason: map[string]int{models.ReasonInvalidAdminCredential: 3},
		total:    9,
	}
	service := newLockoutService(repo)

	decision, err := service.Check(context.Background(), "203.0.113.7", models.ResourceAdmin)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.AttemptsRemaining)
}

func TestLockoutCheck_StrictReasonPerResource(t *testing.T) {
	// Admin-credential failures against a site resource count as loose
	repo := &mockLockoutRepo{
		byReason: map[string]int{models.ReasonInvalidCredentialHash: 2},
		total:    5,
	}
	service := newLockoutService(repo)

	decision, err := service.Check(context.Background(), "203.0.113.7", "gallery")

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	// strict=2, loose=3: remaining = min(5-2, 10-3) = 3
	assert.Equal(t, 3, decision.AttemptsRemaining)
}

func TestLockoutCheck_RepoErrorFailsClosed(t *testing.T) {
	repo := &mockLockoutRepo{err: errors.New("connection refused")}
	service := newLockoutService(repo)

	_, err := service.Check(context.Background(), "203.0.113.7", "gallery")

	// A ledger error is surfaced, never converted into an implicit allow
	assert.Error(t, err)
}

func TestFormatDecision(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	lockedHour := now.Add(1 * time.Hour)
	lockedMixed := now.Add(90 * time.Minute)
	lockedMinute := now.Add(45 * time.Second)

	tests := []struct {
		name     string
		decision services.LockoutDecision
		want     string
	}{
		{
			name:     "locked with one hour remaining",
			decision: services.LockoutDecision{LockedUntil: &lockedHour},
			want:     "Too many failed attempts. Try again in 1 hour.",
		},
		{
			name:     "locked with hour and minutes remaining",
			decision: services.LockoutDecision{LockedUntil: &lockedMixed},
			want:     "Too many failed attempts. Try again in 1 hour 30 minutes.",
		},
		{
			name:     "locked with under a minute remaining rounds up",
			decision: services.LockoutDecision{LockedUntil: &lockedMinute},
			want:     "Too many failed attempts. Try again in 1 minute.",
		},
		{
			name:     "locked without window",
			decision: services.LockoutDecision{},
			want:     "Too many failed attempts. Please try again later.",
		},
		{
			name:     "last attempt warning",
			decision: services.LockoutDecision{Allowed: true, AttemptsRemaining: 1},
			want:     "Incorrect password. This is your last attempt before a temporary lockout.",
		},
		{
			name:     "attempts remaining",
			decision: services.LockoutDecision{Allowed: true, AttemptsRemaining: 3},
			want:     "Incorrect password. 3 attempts remaining.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.FormatDecision(tt.decision, now))
		})
	}
}
