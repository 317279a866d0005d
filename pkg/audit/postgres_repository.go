package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Create persists a new entry.
func (r *PostgresRepository) Create(ctx context.Context, entry Entry) (Entry, error) {
	query := `
		INSERT INTO audit_log (
			id, user_id, user_name, action, category, details,
			ip_address, success, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		toNullString(entry.UserID),
		toNullString(entry.Username),
		entry.Action,
		entry.Category,
		toNullString(entry.Details),
		toNullString(entry.IPAddress),
		entry.Success,
		toNullString(entry.ErrorMessage),
		entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return entry, nil
}

// buildWhere renders the filter as a WHERE clause with positional args.
func buildWhere(filter Filter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Success != nil {
		add("success = $%d", *filter.Success)
	}
	if filter.Keyword != "" {
		args = append(args, "%"+filter.Keyword+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(action ILIKE $%d OR details ILIKE $%d)", n, n))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Query returns entries matching the filter, newest first.
func (r *PostgresRepository) Query(ctx context.Context, filter Filter) ([]Entry, int64, error) {
	where, args := buildWhere(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM audit_log" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	query := `
		SELECT id, user_id, user_name, action, category, details,
			ip_address, success, error_message, created_at
		FROM audit_log` + where + `
		ORDER BY created_at DESC`
	if filter.Take > 0 {
		args = append(args, filter.Take)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Skip > 0 {
		args = append(args, filter.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var userID, username, details, ipAddress, errorMessage sql.NullString
		if err := rows.Scan(
			&e.ID,
			&userID,
			&username,
			&e.Action,
			&e.Category,
			&details,
			&ipAddress,
			&e.Success,
			&errorMessage,
			&e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.UserID = userID.String
		e.Username = username.String
		e.Details = details.String
		e.IPAddress = ipAddress.String
		e.ErrorMessage = errorMessage.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read audit entries: %w", err)
	}

	return entries, total, nil
}

// ListCategories returns the distinct categories observed, sorted.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT DISTINCT category FROM audit_log ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to list audit categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan audit category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit categories: %w", err)
	}

	return categories, nil
}

func toNullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: str, Valid: true}
}
