package apikey

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for API keys. Delete and Restore exist
// only for the compensation paths; revocation is the normal retirement.
type Repository interface {
	// Create persists a new key and returns it.
	Create(ctx context.Context, key APIKey) (APIKey, error)

	// GetByID retrieves a key by its identifier.
	GetByID(ctx context.Context, id uuid.UUID) (APIKey, error)

	// GetByPrefix returns every key whose KeyPrefix matches. Verification
	// compares the presented secret against each candidate's hash.
	GetByPrefix(ctx context.Context, prefix string) ([]APIKey, error)

	// Revoke marks a single key revoked. The operation is scoped to that
	// record; it returns ErrKeyNotFound or ErrAlreadyRevoked.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time, reason string) error

	// Restore puts a key back to a previous state. Used only to undo a
	// mutation whose audit write failed.
	Restore(ctx context.Context, key APIKey) error

	// Delete removes a key outright. Used only to undo an issue whose
	// audit write failed.
	Delete(ctx context.Context, id uuid.UUID) error

	// TouchLastUsed updates the last-used timestamp.
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error

	// List returns all keys, sorted by creation time descending.
	List(ctx context.Context) ([]APIKey, error)
}

// InMemoryRepository implements Repository using in-memory storage.
type InMemoryRepository struct {
	keys  map[uuid.UUID]*APIKey
	mutex sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory API key repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		keys: make(map[uuid.UUID]*APIKey),
	}
}

func copyKey(k *APIKey) APIKey {
	out := *k
	if k.Scopes != nil {
		out.Scopes = make([]string, len(k.Scopes))
		copy(out.Scopes, k.Scopes)
	}
	if k.ExpiresAt != nil {
		t := *k.ExpiresAt
		out.ExpiresAt = &t
	}
	if k.RevokedAt != nil {
		t := *k.RevokedAt
		out.RevokedAt = &t
	}
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		out.LastUsedAt = &t
	}
	return out
}

// Create persists a new key and returns it.
func (r *InMemoryRepository) Create(ctx context.Context, key APIKey) (APIKey, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored := copyKey(&key)
	r.keys[key.ID] = &stored
	return copyKey(&stored), nil
}

// GetByID retrieves a key by its identifier.
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (APIKey, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	key, exists := r.keys[id]
	if !exists {
		return APIKey{}, ErrKeyNotFound
	}
	return copyKey(key), nil
}

// GetByPrefix returns every key whose KeyPrefix matches.
func (r *InMemoryRepository) GetByPrefix(ctx context.Context, prefix string) ([]APIKey, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var matched []APIKey
	for _, key := range r.keys {
		if key.KeyPrefix == prefix {
			matched = append(matched, copyKey(key))
		}
	}
	return matched, nil
}

// Revoke marks a single key revoked.
func (r *InMemoryRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time, reason string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key, exists := r.keys[id]
	if !exists {
		return ErrKeyNotFound
	}
	if key.RevokedAt != nil {
		return ErrAlreadyRevoked
	}

	revokedAt := at
	key.RevokedAt = &revokedAt
	key.RevokeReason = reason
	return nil
}

// Restore puts a key back to a previous state.
func (r *InMemoryRepository) Restore(ctx context.Context, key APIKey) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.keys[key.ID]; !exists {
		return ErrKeyNotFound
	}
	stored := copyKey(&key)
	r.keys[key.ID] = &stored
	return nil
}

// Delete removes a key outright.
func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.keys[id]; !exists {
		return ErrKeyNotFound
	}
	delete(r.keys, id)
	return nil
}

// TouchLastUsed updates the last-used timestamp.
func (r *InMemoryRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key, exists := r.keys[id]
	if !exists {
		return ErrKeyNotFound
	}
	lastUsed := at
	key.LastUsedAt = &lastUsed
	return nil
}

// List returns all keys, sorted by creation time descending.
func (r *InMemoryRepository) List(ctx context.Context) ([]APIKey, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	keys := make([]APIKey, 0, len(r.keys))
	for _, key := range r.keys {
		keys = append(keys, copyKey(key))
	}
	sortKeysByCreatedAtDesc(keys)
	return keys, nil
}

func sortKeysByCreatedAtDesc(keys []APIKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
}
