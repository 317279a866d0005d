package externalprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL. Client
// secrets are encrypted at rest with AES-256-GCM.
type PostgresRepository struct {
	pool      *pgxpool.Pool
	encryptor *EncryptionService
}

// NewPostgresRepository creates a new PostgreSQL provider repository.
func NewPostgresRepository(pool *pgxpool.Pool, encryptionKey string) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	encryptor, err := NewEncryptionService(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption service: %w", err)
	}

	return &PostgresRepository{
		pool:      pool,
		encryptor: encryptor,
	}, nil
}

const providerColumns = `
	id, provider_type, name, display_name, enabled, client_id,
	client_secret_encrypted, callback_path, scopes, additional_config,
	display_order, created_at, updated_at`

func (r *PostgresRepository) scanProvider(row interface{ Scan(...interface{}) error }) (Provider, error) {
	var p Provider
	var encryptedSecret string

	err := row.Scan(
		&p.ID,
		&p.ProviderType,
		&p.Name,
		&p.DisplayName,
		&p.Enabled,
		&p.ClientID,
		&encryptedSecret,
		&p.CallbackPath,
		&p.Scopes,
		&p.AdditionalConfig,
		&p.DisplayOrder,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Provider{}, err
	}

	secret, err := r.encryptor.Decrypt(encryptedSecret)
	if err != nil {
		return Provider{}, fmt.Errorf("failed to decrypt client secret: %w", err)
	}
	p.ClientSecret = secret
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create persists a new provider.
func (r *PostgresRepository) Create(ctx context.Context, provider Provider) (Provider, error) {
	encryptedSecret, err := r.encryptor.Encrypt(provider.ClientSecret)
	if err != nil {
		return Provider{}, fmt.Errorf("failed to encrypt client secret: %w", err)
	}

	query := `
		INSERT INTO external_auth_providers (
			id, provider_type, name, display_name, enabled, client_id,
			client_secret_encrypted, callback_path, scopes, additional_config,
			display_order, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING` + providerColumns

	created, err := r.scanProvider(r.pool.QueryRow(ctx, query,
		provider.ID,
		provider.ProviderType,
		provider.Name,
		provider.DisplayName,
		provider.Enabled,
		provider.ClientID,
		encryptedSecret,
		provider.CallbackPath,
		provider.Scopes,
		provider.AdditionalConfig,
		provider.DisplayOrder,
		provider.CreatedAt,
		provider.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Provider{}, ErrDuplicateName
		}
		return Provider{}, fmt.Errorf("failed to create provider: %w", err)
	}
	return created, nil
}

// GetByID retrieves a provider by its identifier.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Provider, error) {
	query := `SELECT` + providerColumns + ` FROM external_auth_providers WHERE id = $1`

	provider, err := r.scanProvider(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, ErrProviderNotFound
		}
		return Provider{}, fmt.Errorf("failed to get provider: %w", err)
	}
	return provider, nil
}

// GetByName retrieves a provider by its unique name.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (Provider, error) {
	query := `SELECT` + providerColumns + ` FROM external_auth_providers WHERE name = $1`

	provider, err := r.scanProvider(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, ErrProviderNotFound
		}
		return Provider{}, fmt.Errorf("failed to get provider by name: %w", err)
	}
	return provider, nil
}

// Update replaces the stored provider identified by provider.ID.
func (r *PostgresRepository) Update(ctx context.Context, provider Provider) (Provider, error) {
	encryptedSecret, err := r.encryptor.Encrypt(provider.ClientSecret)
	if err != nil {
		return Provider{}, fmt.Errorf("failed to encrypt client secret: %w", err)
	}

	query := `
		UPDATE external_auth_providers SET
			provider_type = $2, name = $3, display_name = $4, enabled = $5,
			client_id = $6, client_secret_encrypted = $7, callback_path = $8,
			scopes = $9, additional_config = $10, display_order = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING` + providerColumns

	updated, err := r.scanProvider(r.pool.QueryRow(ctx, query,
		provider.ID,
		provider.ProviderType,
		provider.Name,
		provider.DisplayName,
		provider.Enabled,
		provider.ClientID,
		encryptedSecret,
		provider.CallbackPath,
		provider.Scopes,
		provider.AdditionalConfig,
		provider.DisplayOrder,
		provider.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, ErrProviderNotFound
		}
		if isUniqueViolation(err) {
			return Provider{}, ErrDuplicateName
		}
		return Provider{}, fmt.Errorf("failed to update provider: %w", err)
	}
	return updated, nil
}

// Delete removes a provider by id.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM external_auth_providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}

// List returns all providers ordered by display order then name.
func (r *PostgresRepository) List(ctx context.Context) ([]Provider, error) {
	query := `SELECT` + providerColumns + `
		FROM external_auth_providers
		ORDER BY display_order, name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		provider, err := r.scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read providers: %w", err)
	}
	return providers, nil
}
