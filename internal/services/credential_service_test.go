package services_test

import (
	"context"
	"fmt"
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

// mockCredentialStore is an in-memory CredentialStore
type mockCredentialStore struct {
	creds  map[string]*models.Credential
	nextID int
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{creds: make(map[string]*models.Credential)}
}

func (m *mockCredentialStore) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	m.nextID++
	cred.ID = fmt.Sprintf("cred-%d", m.nextID)
	cred.CreatedAt = time.Now()
	m.creds[cred.ID] = cred
	return cred, nil
}

func (m *mockCredentialStore) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	cred, ok := m.creds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cred, nil
}

func (m *mockCredentialStore) ListByResourceCode(ctx context.Context, resourceCode string) ([]*models.Credential, error) {
	var out []*models.Credential
	for _, cred := range m.creds {
		if cred.ResourceCode == resourceCode {
			out = append(out, cred)
		}
	}
	return out, nil
}

func (m *mockCredentialStore) Consume(ctx context.Context, credentialID, attemptID, deviceAddress string) error {
	cred, ok := m.creds[credentialID]
	if !ok {
		return models.ErrNotFound
	}
	if cred.LastAttemptID != nil && *cred.LastAttemptID == attemptID {
		return nil
	}
	if cred.AllowedUses != nil && cred.UsesConsumed >= *cred.AllowedUses {
		return models.ErrCredentialExhausted
	}
	cred.UsesConsumed++
	cred.LastAttemptID = &attemptID
	if cred.DeviceAddress == nil && deviceAddress != "" {
		cred.DeviceAddress = &deviceAddress
	}
	return nil
}

func (m *mockCredentialStore) DeleteExpired(ctx context.Context, batchSize int) (int64, error) {
	var removed int64
	for id, cred := range m.creds {
		if !time.Now().Before(cred.ExpiresAt) {
			delete(m.creds, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockCredentialStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.creds[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.creds, id)
	return nil
}

func newCredentialService(store *mockCredentialStore) *services.CredentialService {
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	return services.NewCredentialService(store, audit)
}

func TestCredentialGenerate(t *testing.T) {
	store := newMockCredentialStore()
	service := newCredentialService(store)

	cred, secret, err := service.Generate(context.Background(), services.GenerateCredentialInput{
		ResourceCode:  "gallery",
		Length:        12,
		AllowedUses:   3,
		ExpiresInDays: 7,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, cred.ID)
	assert.Len(t, secret, 12)
	require.NotNil(t, cred.AllowedUses)
	assert.Equal(t, 3, *cred.AllowedUses)
	assert.NotEqual(t, secret, cred.SecretHash)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), cred.ExpiresAt, 5*time.Second)

	// The stored hash verifies against the returned plaintext
	assert.NoError(t, auth.CompareSecret(cred.SecretHash, secret))
}

func TestCredentialGenerate_UnlimitedUses(t *testing.T) {
	store := newMockCredentialStore()
	service := newCredentialService(store)

	cred, _, err := service.Generate(context.Background(), services.GenerateCredentialInput{
		ResourceCode:  "gallery",
		Length:        8,
		AllowedUses:   0,
		ExpiresInDays: 1,
	})

	require.NoError(t, err)
	assert.Nil(t, cred.AllowedUses)
}

func TestCredentialGenerate_Validation(t *testing.T) {
	store := newMockCredentialStore()
	service := newCredentialService(store)

	tests := []struct {
		name  string
		input services.GenerateCredentialInput
	}{
		{
			name:  "empty resource code",
			input: services.GenerateCredentialInput{Length: 8, ExpiresInDays: 1},
		},
		{
			name:  "admin resource code reserved",
			input: services.GenerateCredentialInput{ResourceCode: "admin", Length: 8, ExpiresInDays: 1},
		},
		{
			name:  "zero expiry",
			input: services.GenerateCredentialInput{ResourceCode: "gallery", Length: 8},
		},
		{
			name:  "negative allowed uses",
			input: services.GenerateCredentialInput{ResourceCode: "gallery", Length: 8, AllowedUses: -1, ExpiresInDays: 1},
		},
		{
			name:  "length too short",
			input: services.GenerateCredentialInput{ResourceCode: "gallery", Length: 2, ExpiresInDays: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := service.Generate(context.Background(), tt.input)
			assert.ErrorIs(t, err, models.ErrBadRequest)
		})
	}
}

func TestCredentialVerify(t *testing.T) {
	store := newMockCredentialStore()
	service := newCredentialService(store)

	cred, secret, err := service.Generate(context.Background(), services.GenerateCredentialInput{
		ResourceCode:  "gallery",
		Length:        8,
		AllowedUses:   1,
		ExpiresInDays: 1,
	})
	require.NoError(t, err)

	t.Run("correct secret", func(t *testing.T) {
		got, reason, err := service.Verify(context.Background(), "gallery", secret)
		require.NoError(t, err)
		assert.Empty(t, reason)
		require.NotNil(t, got)
		assert.Equal(t, cred.ID, got.ID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		got, reason, err := service.Verify(context.Background(), "gallery", "nope-1234")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, models.ReasonInvalidCredentialHash, reason)
	})

	t.Run("unknown resource code", func(t *testing.T) {
		got, reason, err := service.Verify(context.Background(), "missing", secret)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, models.ReasonNoMatchingResourceCode, reason)
	})

	t.Run("exhausted credential", func(t *testing.T) {
		require.NoError(t, service.Consume(context.Background(), cred.ID, "attempt-1", "203.0.113.7"))

		got, reason, err := service.Verify(context.Background(), "gallery", secret)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, models.ReasonCredentialExhausted, reason)
	})

	t.Run("expired credential", func(t *testing.T) {
		store.creds[cred.ID].UsesConsumed = 0
		store.creds[cred.ID].LastAttemptID = nil
		store.creds[cred.ID].ExpiresAt = time.Now().Add(-1 * time.Minute)

		got, reason, err := service.Verify(context.Background(), "gallery", secret)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, models.ReasonCredentialExpired, reason)
	})
}

func TestCredentialConsume_Idempotent(t *testing.T) {
	store := newMockCredentialStore()
	service := newCredentialService(store)

	cred, _, err := service.Generate(context.Background(), services.GenerateCredentialInput{
		ResourceCode:  "gallery",
		Length:        8,
		AllowedUses:   2,
		ExpiresInDays: 1,
	})
	require.NoError(t, err)

	// The same attempt id consumes exactly once no matter how often retried
	require.NoError(t, service.Consume(context.Background(), cred.ID, "attempt-1", "203.0.113.7"))
	require.NoError(t, service.Consume(context.Background(), cred.ID, "attempt-1", "203.0.113.7"))
	assert.Equal(t, 1, store.creds[cred.ID].UsesConsumed)

	require.NoError(t, service.Consume(context.Background(), cred.ID, "attempt-2", "203.0.113.8"))
	assert.Equal(t, 2, store.creds[cred.ID].UsesConsumed)

	// First device address sticks
	require.NotNil(t, store.creds[cred.ID].DeviceAddress)
	assert.Equal(t, "203.0.113.7", *store.creds[cred.ID].DeviceAddress)

	err = service.Consume(context.Background(), cred.ID, "attempt-3", "203.0.113.9")
	assert.ErrorIs(t, err, models.ErrCredentialExhausted)
}

func TestCredentialRevokeAndCleanup(t *testing.T) {
	store := newMockCredentialStore()
	service := newCredentialService(store)

	cred, _, err := service.Generate(context.Background(), services.GenerateCredentialInput{
		ResourceCode:  "gallery",
		Length:        8,
		ExpiresInDays: 1,
	})
	require.NoError(t, err)

	require.NoError(t, service.Revoke(context.Background(), cred.ID))
	assert.ErrorIs(t, service.Revoke(context.Background(), cred.ID), models.ErrNotFound)

	expired, _, err := service.Generate(context.Background(), services.GenerateCredentialInput{
		ResourceCode:  "gallery",
		Length:        8,
		ExpiresInDays: 1,
	})
	require.NoError(t, err)
	store.creds[expired.ID].ExpiresAt = time.Now().Add(-1 * time.Hour)

	removed, err := service.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Empty(t, store.creds)
}
