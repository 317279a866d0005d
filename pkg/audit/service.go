package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

const (
	// DefaultPageSize is applied when a query does not specify Take.
	DefaultPageSize = 50
	// MaxPageSize caps Take on paginated queries.
	MaxPageSize = 500
	// MaxExportRows bounds Export so it cannot hold unbounded row sets
	// in memory.
	MaxExportRows = 10000
)

// Recorder is the write side of the trail, consumed by every mutating
// component. *Service satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Service provides recording and querying of audit entries.
type Service struct {
	repository Repository
}

// NewService creates a new audit service with the provided repository.
func NewService(repository Repository) *Service {
	return &Service{
		repository: repository,
	}
}

// Record appends an entry to the trail. Callers performing a mutation must
// treat a Record failure as a failure of the mutation itself.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()
	if entry.Success {
		entry.ErrorMessage = ""
	}
	if entry.IPAddress == "" {
		entry.IPAddress = ClientIPFromContext(ctx)
	}

	if _, err := s.repository.Create(ctx, entry); err != nil {
		slog.Error("Failed to write audit entry",
			"category", entry.Category,
			"action", entry.Action,
			"error", err)
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	slog.Debug("Audit entry recorded",
		"category", entry.Category,
		"action", entry.Action,
		"success", entry.Success)
	return nil
}

// Query returns a page of entries matching the filter and the total count
// of matches before pagination.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Entry, int64, error) {
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Take <= 0 {
		filter.Take = DefaultPageSize
	}
	if filter.Take > MaxPageSize {
		filter.Take = MaxPageSize
	}

	entries, total, err := s.repository.Query(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit log: %w", err)
	}
	return entries, total, nil
}

// ListCategories returns the distinct categories observed in the trail.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repository.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit categories: %w", err)
	}
	return categories, nil
}

// Export returns all entries matching the filter without pagination,
// bounded by MaxExportRows. Export and Query see the same underlying rows
// for identical filters.
func (s *Service) Export(ctx context.Context, filter Filter) ([]ExportRow, error) {
	filter.Skip = 0
	filter.Take = MaxExportRows

	entries, _, err := s.repository.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to export audit log: %w", err)
	}

	rows := make([]ExportRow, 0, len(entries))
	for _, e := range entries {
		var row ExportRow
		if err := copier.Copy(&row, &e); err != nil {
			return nil, fmt.Errorf("failed to map audit entry: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
