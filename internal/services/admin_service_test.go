package services_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"gatehouse/internal/models"
	"gatehouse/internal/services"
	"gatehouse/pkg/auth"
	"gatehouse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAdminStore holds the singleton admin settings in memory
type mockAdminStore struct {
	settings *models.AdminSettings
}

func (m *mockAdminStore) Get(ctx context.Context) (*models.AdminSettings, error) {
	if m.settings == nil {
		return nil, models.ErrNotFound
	}
	return m.settings, nil
}

func (m *mockAdminStore) Create(ctx context.Context, passwordHash string) (*models.AdminSettings, error) {
	if m.settings != nil {
		return nil, models.ErrConflict
	}
	m.settings = &models.AdminSettings{
		ID:           "admin",
		PasswordHash: passwordHash,
		BlockedIPs:   []string{},
		UpdatedAt:    time.Now(),
	}
	return m.settings, nil
}

func (m *mockAdminStore) UpdatePassword(ctx context.Context, passwordHash string) error {
	if m.settings == nil {
		return models.ErrNotFound
	}
	m.settings.PasswordHash = passwordHash
	return nil
}

func (m *mockAdminStore) AddBlockedIP(ctx context.Context, ip string) error {
	for _, blocked := range m.settings.BlockedIPs {
		if blocked == ip {
			return nil
		}
	}
	m.settings.BlockedIPs = append(m.settings.BlockedIPs, ip)
	return nil
}

func (m *mockAdminStore) RemoveBlockedIP(ctx context.Context, ip string) error {
	out := m.settings.BlockedIPs[:0]
	for _, blocked := range m.settings.BlockedIPs {
		if blocked != ip {
			out = append(out, blocked)
		}
	}
	m.settings.BlockedIPs = out
	return nil
}

func newAdminService(store *mockAdminStore) *services.AdminService {
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	return services.NewAdminService(store, audit)
}

func seededAdminStore(t *testing.T, password string) *mockAdminStore {
	t.Helper()
	hash, err := auth.HashSecret(password)
	require.NoError(t, err)
	return &mockAdminStore{settings: &models.AdminSettings{
		ID:           "admin",
		PasswordHash: hash,
		BlockedIPs:   []string{},
	}}
}

func TestAdminEnsureSeeded(t *testing.T) {
	store := &mockAdminStore{}
	service := newAdminService(store)

	require.NoError(t, service.EnsureSeeded(context.Background(), "initial-password-123"))
	require.NotNil(t, store.settings)
	firstHash := store.settings.PasswordHash

	// Second startup leaves the stored hash untouched
	require.NoError(t, service.EnsureSeeded(context.Background(), "different-password-456"))
	assert.Equal(t, firstHash, store.settings.PasswordHash)
}

func TestAdminEnsureSeeded_ShortPassword(t *testing.T) {
	store := &mockAdminStore{}
	service := newAdminService(store)

	assert.Error(t, service.EnsureSeeded(context.Background(), "short"))
	assert.Nil(t, store.settings)
}

func TestAdminVerify(t *testing.T) {
	store := seededAdminStore(t, "correct-horse-battery")
	service := newAdminService(store)

	t.Run("correct password", func(t *testing.T) {
		reason, err := service.Verify(context.Background(), "203.0.113.7", "correct-horse-battery")
		require.NoError(t, err)
		assert.Empty(t, reason)
	})

	t.Run("wrong password", func(t *testing.T) {
		reason, err := service.Verify(context.Background(), "203.0.113.7", "wrong")
		require.NoError(t, err)
		assert.Equal(t, models.ReasonInvalidAdminCredential, reason)
	})

	t.Run("blocked origin short-circuits", func(t *testing.T) {
		store.settings.BlockedIPs = []string{"203.0.113.7"}

		// Even the correct password reports blocked-ip
		reason, err := service.Verify(context.Background(), "203.0.113.7", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, models.ReasonBlockedIP, reason)
	})
}

func TestAdminChangePassword(t *testing.T) {
	store := seededAdminStore(t, "correct-horse-battery")
	service := newAdminService(store)

	t.Run("wrong current password", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), "203.0.113.7", "wrong", "replacement-password")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("new password too short", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), "203.0.113.7", "correct-horse-battery", "short")
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("success", func(t *testing.T) {
		err := service.ChangePassword(context.Background(), "203.0.113.7", "correct-horse-battery", "replacement-password")
		require.NoError(t, err)

		reason, err := service.Verify(context.Background(), "203.0.113.7", "replacement-password")
		require.NoError(t, err)
		assert.Empty(t, reason)
	})
}

func TestAdminBlocklist(t *testing.T) {
	store := seededAdminStore(t, "correct-horse-battery")
	service := newAdminService(store)

	assert.ErrorIs(t, service.BlockIP(context.Background(), "203.0.113.1", "not-an-ip"), models.ErrBadRequest)

	require.NoError(t, service.BlockIP(context.Background(), "203.0.113.1", "198.51.100.4"))
	require.NoError(t, service.BlockIP(context.Background(), "203.0.113.1", "198.51.100.4"))

	blocked, err := service.Blocklist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"198.51.100.4"}, blocked)

	require.NoError(t, service.UnblockIP(context.Background(), "203.0.113.1", "198.51.100.4"))

	blocked, err = service.Blocklist(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blocked)
}
