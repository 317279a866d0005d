package apikey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL API key repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const apiKeyColumns = `
	id, name, key_prefix, secret_hash, scopes,
	created_at, expires_at, revoked_at, revoke_reason, last_used_at`

func scanAPIKey(row interface{ Scan(...interface{}) error }) (APIKey, error) {
	var key APIKey
	var expiresAt, revokedAt, lastUsedAt sql.NullTime
	var revokeReason sql.NullString

	err := row.Scan(
		&key.ID,
		&key.Name,
		&key.KeyPrefix,
		&key.SecretHash,
		&key.Scopes,
		&key.CreatedAt,
		&expiresAt,
		&revokedAt,
		&revokeReason,
		&lastUsedAt,
	)
	if err != nil {
		return APIKey{}, err
	}

	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}
	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}
	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}
	key.RevokeReason = revokeReason.String
	return key, nil
}

// Create persists a new key and returns it.
func (r *PostgresRepository) Create(ctx context.Context, key APIKey) (APIKey, error) {
	query := `
		INSERT INTO api_keys (
			id, name, key_prefix, secret_hash, scopes, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING` + apiKeyColumns

	created, err := scanAPIKey(r.pool.QueryRow(ctx, query,
		key.ID,
		key.Name,
		key.KeyPrefix,
		key.SecretHash,
		key.Scopes,
		key.CreatedAt,
		key.ExpiresAt,
	))
	if err != nil {
		return APIKey{}, fmt.Errorf("failed to create api key: %w", err)
	}
	return created, nil
}

// GetByID retrieves a key by its identifier.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (APIKey, error) {
	query := `SELECT` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	key, err := scanAPIKey(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return APIKey{}, ErrKeyNotFound
		}
		return APIKey{}, fmt.Errorf("failed to get api key: %w", err)
	}
	return key, nil
}

// GetByPrefix returns every key whose KeyPrefix matches.
func (r *PostgresRepository) GetByPrefix(ctx context.Context, prefix string) ([]APIKey, error) {
	query := `SELECT` + apiKeyColumns + ` FROM api_keys WHERE key_prefix = $1`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys by prefix: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read api keys: %w", err)
	}
	return keys, nil
}

// Revoke marks a single key revoked. The WHERE clause keeps the update
// scoped to one row and makes concurrent duplicate revokes lose cleanly.
func (r *PostgresRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time, reason string) error {
	query := `
		UPDATE api_keys
		SET revoked_at = $2, revoke_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, at, toNullString(reason))
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Either absent or already revoked; one more read decides which.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyRevoked
	}
	return nil
}

// Restore puts a key back to a previous state.
func (r *PostgresRepository) Restore(ctx context.Context, key APIKey) error {
	query := `
		UPDATE api_keys
		SET revoked_at = $2, revoke_reason = $3, expires_at = $4, scopes = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		key.ID, key.RevokedAt, toNullString(key.RevokeReason), key.ExpiresAt, key.Scopes)
	if err != nil {
		return fmt.Errorf("failed to restore api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// Delete removes a key outright.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// TouchLastUsed updates the last-used timestamp.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update api key last used: %w", err)
	}
	return nil
}

// List returns all keys, sorted by creation time descending.
func (r *PostgresRepository) List(ctx context.Context) ([]APIKey, error) {
	query := `SELECT` + apiKeyColumns + ` FROM api_keys ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read api keys: %w", err)
	}
	return keys, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func toNullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: str, Valid: true}
}
