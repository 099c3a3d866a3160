package repositories

import (
	"context"
	"time"

	"gatehouse/internal/database"
	"gatehouse/internal/models"
)

// AttemptRepository is the persistent login-attempt ledger. Rows are append
// only; the single permitted mutation is attaching the issued token after a
// successful login. Request flow never deletes rows, retention pruning is
// the janitor's job.
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record appends one attempt and returns its id. A storage error here fails
// the whole login request: an unrecorded attempt must never authenticate.
func (r *AttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) (string, error) {
	query := `
		INSERT INTO login_attempts
			(origin_address, user_agent, resource_code, succeeded, is_administrator, failure_reason, resolved_location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, occurred_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		attempt.OriginAddress,
		attempt.UserAgent,
		attempt.ResourceCode,
		attempt.Succeeded,
		attempt.IsAdministrator,
		attempt.FailureReason,
		attempt.ResolvedLocation,
	).Scan(&attempt.ID, &attempt.OccurredAt)
	if err != nil {
		return "", database.MapPostgresError(err)
	}

	return attempt.ID, nil
}

// AttachToken binds the issued token to an attempt record.
func (r *AttemptRepository) AttachToken(ctx context.Context, attemptID, token string, expiresAt *time.Time) error {
	query := `
		UPDATE login_attempts
		SET issued_token = $2, token_expires_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, attemptID, token, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountFailures returns the number of failed attempts for an (origin,
// resource) pair since the given instant, regardless of reason.
func (r *AttemptRepository) CountFailures(ctx context.Context, origin, resourceCode string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE origin_address = $1 AND resource_code = $2 AND succeeded = false AND occurred_at >= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, origin, resourceCode, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// CountFailuresByReason returns the number of failed attempts with one exact
// failure reason for an (origin, resource) pair since the given instant.
func (r *AttemptRepository) CountFailuresByReason(ctx context.Context, origin, resourceCode, reason string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE origin_address = $1 AND resource_code = $2 AND succeeded = false
			AND failure_reason = $3 AND occurred_at >= $4
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, origin, resourceCode, reason, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// ListRecent returns matching attempts, newest first.
func (r *AttemptRepository) ListRecent(ctx context.Context, filter models.AttemptFilter, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, origin_address, user_agent, resource_code, succeeded, occurred_at,
			is_administrator, failure_reason, resolved_location, issued_token, token_expires_at
		FROM login_attempts
		WHERE ($1 = '' OR origin_address = $1)
			AND ($2 = '' OR resource_code = $2)
			AND (NOT $3::boolean OR succeeded = false)
			AND occurred_at >= $4
		ORDER BY occurred_at DESC
		LIMIT $5
	`

	since := filter.Since
	if since.IsZero() {
		since = time.Unix(0, 0)
	}

	rows, err := r.db.Pool.Query(ctx, query,
		filter.OriginAddress, filter.ResourceCode, filter.FailedOnly, since, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var attempts []*models.LoginAttempt
	for rows.Next() {
		attempt := &models.LoginAttempt{}
		err := rows.Scan(
			&attempt.ID,
			&attempt.OriginAddress,
			&attempt.UserAgent,
			&attempt.ResourceCode,
			&attempt.Succeeded,
			&attempt.OccurredAt,
			&attempt.IsAdministrator,
			&attempt.FailureReason,
			&attempt.ResolvedLocation,
			&attempt.IssuedToken,
			&attempt.TokenExpiresAt,
		)
		if err != nil {
			return nil, database.MapPostgresError(err)
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

// DeleteOlderThan prunes ledger rows past the retention horizon.
func (r *AttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE occurred_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
