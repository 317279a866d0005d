package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Repository defines data access for audit entries. The interface is
// deliberately append-only: no update or delete exists.
type Repository interface {
	// Create persists a new entry and returns it with storage-assigned fields.
	Create(ctx context.Context, entry Entry) (Entry, error)

	// Query returns entries matching the filter, newest first, along with
	// the total match count before pagination.
	Query(ctx context.Context, filter Filter) ([]Entry, int64, error)

	// ListCategories returns the distinct categories observed, sorted.
	ListCategories(ctx context.Context) ([]string, error)
}

// InMemoryRepository implements Repository using in-memory storage.
type InMemoryRepository struct {
	entries []Entry
	mutex   sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Create persists a new entry.
func (r *InMemoryRepository) Create(ctx context.Context, entry Entry) (Entry, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.entries = append(r.entries, entry)
	return entry, nil
}

func matches(e Entry, f Filter) bool {
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	if f.Keyword != "" {
		kw := strings.ToLower(f.Keyword)
		if !strings.Contains(strings.ToLower(e.Action), kw) &&
			!strings.Contains(strings.ToLower(e.Details), kw) {
			return false
		}
	}
	return true
}

// Query returns entries matching the filter, newest first.
func (r *InMemoryRepository) Query(ctx context.Context, filter Filter) ([]Entry, int64, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var matched []Entry
	for _, e := range r.entries {
		if matches(e, filter) {
			matched = append(matched, e)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	skip := filter.Skip
	if skip > len(matched) {
		skip = len(matched)
	}
	matched = matched[skip:]
	if filter.Take > 0 && filter.Take < len(matched) {
		matched = matched[:filter.Take]
	}

	out := make([]Entry, len(matched))
	copy(out, matched)
	return out, total, nil
}

// ListCategories returns the distinct categories observed, sorted.
func (r *InMemoryRepository) ListCategories(ctx context.Context) ([]string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range r.entries {
		seen[e.Category] = struct{}{}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}
