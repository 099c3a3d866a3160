package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gatehouse/internal/models"
	"gatehouse/pkg/auth"
	"gatehouse/pkg/logger"
)

const cleanupBatchSize = 500

// CredentialStore defines the persistence operations the credential
// lifecycle needs
type CredentialStore interface {
	Create(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	GetByID(ctx context.Context, id string) (*models.Credential, error)
	ListByResourceCode(ctx context.Context, resourceCode string) ([]*models.Credential, error)
	Consume(ctx context.Context, credentialID, attemptID, deviceAddress string) error
	DeleteExpired(ctx context.Context, batchSize int) (int64, error)
	Delete(ctx context.Context, id string) error
}

// GenerateCredentialInput describes one credential to mint. AllowedUses of 0
// means unlimited.
type GenerateCredentialInput struct {
	ResourceCode     string
	Length           int
	AllowedUses      int
	ExpiresInDays    int
	IncludeUppercase bool
	IncludeLowercase bool
	IncludeSpecial   bool
}

// CredentialService owns the site-credential lifecycle: minting, verifying,
// consuming and cleanup.
type CredentialService struct {
	store CredentialStore
	audit *logger.AuditLogger
	now   func() time.Time
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(store CredentialStore, audit *logger.AuditLogger) *CredentialService {
	return &CredentialService{
		store: store,
		audit: audit,
		now:   time.Now,
	}
}

// Generate mints a credential and returns it together with the plaintext
// secret. The plaintext exists only in this return value; the store keeps the
// bcrypt hash.
func (s *CredentialService) Generate(ctx context.Context, input GenerateCredentialInput) (*models.Credential, string, error) {
	if input.ResourceCode == "" || input.ResourceCode == models.ResourceAdmin {
		return nil, "", fmt.Errorf("%w: invalid resource code", models.ErrBadRequest)
	}
	if input.ExpiresInDays < 1 {
		return nil, "", fmt.Errorf("%w: expiry must be at least one day", models.ErrBadRequest)
	}
	if input.AllowedUses < 0 {
		return nil, "", fmt.Errorf("%w: allowed uses cannot be negative", models.ErrBadRequest)
	}

	secret, err := auth.GenerateSecret(auth.SecretOptions{
		Length:           input.Length,
		IncludeUppercase: input.IncludeUppercase,
		IncludeLowercase: input.IncludeLowercase,
		IncludeSpecial:   input.IncludeSpecial,
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash secret: %w", err)
	}

	cred := &models.Credential{
		ResourceCode: input.ResourceCode,
		SecretHash:   hash,
		Length:       input.Length,
		ExpiresAt:    s.now().AddDate(0, 0, input.ExpiresInDays),
	}
	if input.AllowedUses > 0 {
		uses := input.AllowedUses
		cred.AllowedUses = &uses
	}

	cred, err = s.store.Create(ctx, cred)
	if err != nil {
		return nil, "", fmt.Errorf("failed to store credential: %w", err)
	}

	s.audit.LogCredentialAction("credential_created", cred.ResourceCode, cred.ID, map[string]string{
		"expires_at":   cred.ExpiresAt.UTC().Format(time.RFC3339),
		"allowed_uses": formatAllowedUses(cred.AllowedUses),
	})

	return cred, secret, nil
}

// Verify checks a plaintext secret against every credential of a resource
// code. On failure it returns the reason to record on the attempt; the reason
// distinguishes an unknown code, a wrong secret, an expired match and an
// exhausted match.
func (s *CredentialService) Verify(ctx context.Context, resourceCode, secret string) (*models.Credential, string, error) {
	creds, err := s.store.ListByResourceCode(ctx, resourceCode)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list credentials: %w", err)
	}
	if len(creds) == 0 {
		return nil, models.ReasonNoMatchingResourceCode, nil
	}

	now := s.now()

	// The secret may match a spent credential while a usable one also exists,
	// so every match is collected and the usable one wins.
	var matched *models.Credential
	for _, cred := range creds {
		if auth.CompareSecret(cred.SecretHash, secret) != nil {
			continue
		}
		if cred.Usable(now) {
			return cred, "", nil
		}
		if matched == nil {
			matched = cred
		}
	}

	if matched == nil {
		return nil, models.ReasonInvalidCredentialHash, nil
	}
	if !now.Before(matched.ExpiresAt) {
		return nil, models.ReasonCredentialExpired, nil
	}
	return nil, models.ReasonCredentialExhausted, nil
}

// Consume records one successful use of a credential, keyed on the attempt id
// so a retried call cannot double-count.
func (s *CredentialService) Consume(ctx context.Context, credentialID, attemptID, deviceAddress string) error {
	if err := s.store.Consume(ctx, credentialID, attemptID, deviceAddress); err != nil {
		return fmt.Errorf("failed to consume credential: %w", err)
	}
	return nil
}

// Get fetches one credential by id.
func (s *CredentialService) Get(ctx context.Context, id string) (*models.Credential, error) {
	return s.store.GetByID(ctx, id)
}

// List returns every credential for a resource code, spent and expired rows
// included.
func (s *CredentialService) List(ctx context.Context, resourceCode string) ([]*models.Credential, error) {
	return s.store.ListByResourceCode(ctx, resourceCode)
}

// Revoke deletes a credential outright.
func (s *CredentialService) Revoke(ctx context.Context, id string) error {
	cred, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.LogCredentialAction("credential_revoked", cred.ResourceCode, cred.ID, nil)
	return nil
}

// CleanupExpired removes expired credentials in batches and returns the count
// removed.
func (s *CredentialService) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpired(ctx, cleanupBatchSize)
	if err != nil {
		return removed, fmt.Errorf("failed to clean up credentials: %w", err)
	}

	if removed > 0 {
		s.audit.LogCredentialAction("credential_cleanup", "", "", map[string]string{
			"removed": strconv.FormatInt(removed, 10),
		})
	}

	return removed, nil
}

func formatAllowedUses(uses *int) string {
	if uses == nil {
		return "unlimited"
	}
	return strconv.Itoa(*uses)
}
