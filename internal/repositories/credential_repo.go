package repositories

import (
	"context"

	"gatehouse/internal/database"
	"gatehouse/internal/models"

	"github.com/jackc/pgx/v5"
)

// CredentialRepository handles database operations for site credentials
type CredentialRepository struct {
	db *database.DB
}

// NewCredentialRepository creates a new CredentialRepository
func NewCredentialRepository(db *database.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create stores a new credential and fills in its generated fields.
func (r *CredentialRepository) Create(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (resource_code, secret_hash, length, allowed_uses, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		cred.ResourceCode,
		cred.SecretHash,
		cred.Length,
		cred.AllowedUses,
		cred.ExpiresAt,
	).Scan(&cred.ID, &cred.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return cred, nil
}

// GetByID fetches one credential.
func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*models.Credential, error) {
	query := `
		SELECT id, resource_code, secret_hash, length, allowed_uses, uses_consumed,
			created_at, expires_at, last_attempt_id, device_address
		FROM credentials
		WHERE id = $1
	`

	cred := &models.Credential{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&cred.ID,
		&cred.ResourceCode,
		&cred.SecretHash,
		&cred.Length,
		&cred.AllowedUses,
		&cred.UsesConsumed,
		&cred.CreatedAt,
		&cred.ExpiresAt,
		&cred.LastAttemptID,
		&cred.DeviceAddress,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return cred, nil
}

// ListByResourceCode returns every credential for a resource code, newest
// first. Expired rows are included: the verifier needs them to distinguish
// "expired" from "wrong secret".
func (r *CredentialRepository) ListByResourceCode(ctx context.Context, resourceCode string) ([]*models.Credential, error) {
	query := `
		SELECT id, resource_code, secret_hash, length, allowed_uses, uses_consumed,
			created_at, expires_at, last_attempt_id, device_address
		FROM credentials
		WHERE resource_code = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, resourceCode)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var creds []*models.Credential
	for rows.Next() {
		cred := &models.Credential{}
		err := rows.Scan(
			&cred.ID,
			&cred.ResourceCode,
			&cred.SecretHash,
			&cred.Length,
			&cred.AllowedUses,
			&cred.UsesConsumed,
			&cred.CreatedAt,
			&cred.ExpiresAt,
			&cred.LastAttemptID,
			&cred.DeviceAddress,
		)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		creds = append(creds, cred)
	}

	return creds, rows.Err()
}

// Consume increments the usage count for one successful login. The update is
// conditional: it only applies while the count is below the cap, and it is
// keyed on the attempt id so a retried step cannot double-increment.
func (r *CredentialRepository) Consume(ctx context.Context, credentialID, attemptID, deviceAddress string) error {
	query := `
		UPDATE credentials
		SET uses_consumed = uses_consumed + 1,
			last_attempt_id = $2,
			device_address = COALESCE(device_address, NULLIF($3, ''))
		WHERE id = $1
			AND (last_attempt_id IS NULL OR last_attempt_id <> $2)
			AND (allowed_uses IS NULL OR uses_consumed < allowed_uses)
	`

	tag, err := r.db.Pool.Exec(ctx, query, credentialID, attemptID, deviceAddress)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: either this attempt already consumed (idempotent
	// retry), the cap is reached, or the credential is gone.
	var lastAttemptID *string
	err = r.db.Pool.QueryRow(ctx,
		`SELECT last_attempt_id FROM credentials WHERE id = $1`, credentialID,
	).Scan(&lastAttemptID)
	if err == pgx.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return database.MapPostgresError(err)
	}

	if lastAttemptID != nil && *lastAttemptID == attemptID {
		return nil
	}
	return models.ErrCredentialExhausted
}

// DeleteExpired removes expired credentials in bounded batches and returns
// the total removed. Safe to call repeatedly and concurrently with reads.
func (r *CredentialRepository) DeleteExpired(ctx context.Context, batchSize int) (int64, error) {
	query := `
		DELETE FROM credentials
		WHERE id IN (
			SELECT id FROM credentials
			WHERE expires_at <= CURRENT_TIMESTAMP
			LIMIT $1
		)
	`

	var total int64
	for {
		tag, err := r.db.Pool.Exec(ctx, query, batchSize)
		if err != nil {
			return total, database.MapPostgresError(err)
		}

		total += tag.RowsAffected()
		if tag.RowsAffected() < int64(batchSize) {
			return total, nil
		}
	}
}

// Delete removes a credential outright (manual revocation).
func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
