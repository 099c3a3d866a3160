package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"gatehouse/internal/models"
	"gatehouse/pkg/auth"
	"gatehouse/pkg/logger"
)

const minAdminPasswordLen = 12

// AdminStore defines the persistence operations for the singleton admin
// settings
type AdminStore interface {
	Get(ctx context.Context) (*models.AdminSettings, error)
	Create(ctx context.Context, passwordHash string) (*models.AdminSettings, error)
	UpdatePassword(ctx context.Context, passwordHash string) error
	AddBlockedIP(ctx context.Context, ip string) error
	RemoveBlockedIP(ctx context.Context, ip string) error
}

// AdminService owns the admin credential and its origin blocklist.
type AdminService struct {
	store AdminStore
	audit *logger.AuditLogger
}

// NewAdminService creates a new AdminService
func NewAdminService(store AdminStore, audit *logger.AuditLogger) *AdminService {
	return &AdminService{
		store: store,
		audit: audit,
	}
}

// EnsureSeeded creates the settings row from the configured initial password
// if it does not exist yet. Subsequent startups leave the stored hash alone.
func (s *AdminService) EnsureSeeded(ctx context.Context, initialPassword string) error {
	_, err := s.store.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to load admin settings: %w", err)
	}

	if len(initialPassword) < minAdminPasswordLen {
		return fmt.Errorf("initial admin password must be at least %d characters", minAdminPasswordLen)
	}

	hash, err := auth.HashSecret(initialPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if _, err := s.store.Create(ctx, hash); err != nil {
		// Another instance may have seeded concurrently
		if errors.Is(err, models.ErrConflict) {
			return nil
		}
		return fmt.Errorf("failed to seed admin settings: %w", err)
	}

	s.audit.LogAdminAction("admin_seeded", "", true)
	return nil
}

// Verify checks an admin login. The blocklist is consulted before the hash so
// a blocked origin never learns whether its password was right. On failure it
// returns the reason to record on the attempt.
func (s *AdminService) Verify(ctx context.Context, origin, password string) (string, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load admin settings: %w", err)
	}

	if settings.Blocked(origin) {
		return models.ReasonBlockedIP, nil
	}

	if auth.CompareSecret(settings.PasswordHash, password) != nil {
		return models.ReasonInvalidAdminCredential, nil
	}

	return "", nil
}

// ChangePassword replaces the admin password after re-verifying the current
// one.
func (s *AdminService) ChangePassword(ctx context.Context, origin, currentPassword, newPassword string) error {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load admin settings: %w", err)
	}

	if auth.CompareSecret(settings.PasswordHash, currentPassword) != nil {
		s.audit.LogAdminAction("password_change", origin, false)
		return models.ErrUnauthorized
	}

	if len(newPassword) < minAdminPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", models.ErrBadRequest, minAdminPasswordLen)
	}

	hash, err := auth.HashSecret(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, hash); err != nil {
		return fmt.Errorf("failed to update admin password: %w", err)
	}

	s.audit.LogAdminAction("password_change", origin, true)
	return nil
}

// BlockIP adds an origin address to the blocklist. Adding an address that is
// already blocked is a no-op.
func (s *AdminService) BlockIP(ctx context.Context, origin, ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("%w: invalid IP address", models.ErrBadRequest)
	}

	if err := s.store.AddBlockedIP(ctx, ip); err != nil {
		return fmt.Errorf("failed to block address: %w", err)
	}

	s.audit.LogAdminAction("ip_blocked", origin, true)
	return nil
}

// UnblockIP removes an origin address from the blocklist.
func (s *AdminService) UnblockIP(ctx context.Context, origin, ip string) error {
	if err := s.store.RemoveBlockedIP(ctx, ip); err != nil {
		return fmt.Errorf("failed to unblock address: %w", err)
	}

	s.audit.LogAdminAction("ip_unblocked", origin, true)
	return nil
}

// Blocklist returns the blocked origin addresses.
func (s *AdminService) Blocklist(ctx context.Context) ([]string, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin settings: %w", err)
	}
	return settings.BlockedIPs, nil
}
