package oauth2client

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL. The unique
// index on client_id is the authoritative uniqueness guard.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL client repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const clientColumns = `
	client_id, display_name, client_type, redirect_uris,
	post_logout_redirect_uris, scopes, secret_hash, created_at, updated_at`

func scanClient(row interface{ Scan(...interface{}) error }) (Client, error) {
	var c Client
	err := row.Scan(
		&c.ClientID,
		&c.DisplayName,
		&c.ClientType,
		&c.RedirectURIs,
		&c.PostLogoutRedirectURIs,
		&c.Scopes,
		&c.SecretHash,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create persists a new client.
func (r *PostgresRepository) Create(ctx context.Context, client Client) (Client, error) {
	query := `
		INSERT INTO clients (
			client_id, display_name, client_type, redirect_uris,
			post_logout_redirect_uris, scopes, secret_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING` + clientColumns

	created, err := scanClient(r.pool.QueryRow(ctx, query,
		client.ClientID,
		client.DisplayName,
		client.ClientType,
		client.RedirectURIs,
		client.PostLogoutRedirectURIs,
		client.Scopes,
		client.SecretHash,
		client.CreatedAt,
		client.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Client{}, ErrDuplicateClientID
		}
		return Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return created, nil
}

// GetByClientID retrieves a client by its clientId.
func (r *PostgresRepository) GetByClientID(ctx context.Context, clientID string) (Client, error) {
	query := `SELECT` + clientColumns + ` FROM clients WHERE client_id = $1`

	client, err := scanClient(r.pool.QueryRow(ctx, query, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrClientNotFound
		}
		return Client{}, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// Update replaces the stored client identified by client.ClientID.
func (r *PostgresRepository) Update(ctx context.Context, client Client) (Client, error) {
	query := `
		UPDATE clients SET
			display_name = $2, redirect_uris = $3,
			post_logout_redirect_uris = $4, scopes = $5,
			secret_hash = $6, updated_at = $7
		WHERE client_id = $1
		RETURNING` + clientColumns

	updated, err := scanClient(r.pool.QueryRow(ctx, query,
		client.ClientID,
		client.DisplayName,
		client.RedirectURIs,
		client.PostLogoutRedirectURIs,
		client.Scopes,
		client.SecretHash,
		client.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrClientNotFound
		}
		return Client{}, fmt.Errorf("failed to update client: %w", err)
	}
	return updated, nil
}

// Delete removes a client by clientId.
func (r *PostgresRepository) Delete(ctx context.Context, clientID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

// List returns all clients sorted by clientId.
func (r *PostgresRepository) List(ctx context.Context) ([]Client, error) {
	query := `SELECT` + clientColumns + ` FROM clients ORDER BY client_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read clients: %w", err)
	}
	return clients, nil
}
