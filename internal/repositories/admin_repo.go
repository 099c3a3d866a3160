package repositories

import (
	"context"

	"gatehouse/internal/database"
	"gatehouse/internal/models"
)

// adminSettingsID pins the admin settings to a single row.
const adminSettingsID = "admin"

// AdminRepository handles the singleton admin credential and its IP blocklist
type AdminRepository struct {
	db *database.DB
}

// NewAdminRepository creates a new AdminRepository
func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Get fetches the admin settings row. Returns models.ErrNotFound before the
// first seed.
func (r *AdminRepository) Get(ctx context.Context) (*models.AdminSettings, error) {
	query := `
		SELECT id, password_hash, blocked_ips, updated_at
		FROM admin_settings
		WHERE id = $1
	`

	settings := &models.AdminSettings{}
	err := r.db.Pool.QueryRow(ctx, query, adminSettingsID).Scan(
		&settings.ID,
		&settings.PasswordHash,
		&settings.BlockedIPs,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return settings, nil
}

// Create seeds the singleton row with an initial password hash.
func (r *AdminRepository) Create(ctx context.Context, passwordHash string) (*models.AdminSettings, error) {
	query := `
		INSERT INTO admin_settings (id, password_hash, blocked_ips)
		VALUES ($1, $2, '{}')
		RETURNING id, password_hash, blocked_ips, updated_at
	`

	settings := &models.AdminSettings{}
	err := r.db.Pool.QueryRow(ctx, query, adminSettingsID, passwordHash).Scan(
		&settings.ID,
		&settings.PasswordHash,
		&settings.BlockedIPs,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return settings, nil
}

// UpdatePassword replaces the admin password hash.
func (r *AdminRepository) UpdatePassword(ctx context.Context, passwordHash string) error {
	query := `
		UPDATE admin_settings
		SET password_hash = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, adminSettingsID, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddBlockedIP appends an origin address to the blocklist if not present.
func (r *AdminRepository) AddBlockedIP(ctx context.Context, ip string) error {
	query := `
		UPDATE admin_settings
		SET blocked_ips = array_append(blocked_ips, $2), updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND NOT ($2 = ANY(blocked_ips))
	`

	_, err := r.db.Pool.Exec(ctx, query, adminSettingsID, ip)
	return database.MapPostgresError(err)
}

// RemoveBlockedIP removes an origin address from the blocklist.
func (r *AdminRepository) RemoveBlockedIP(ctx context.Context, ip string) error {
	query := `
		UPDATE admin_settings
		SET blocked_ips = array_remove(blocked_ips, $2), updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, adminSettingsID, ip)
	return database.MapPostgresError(err)
}
