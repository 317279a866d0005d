package externalprovider

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Repository defines data access for external providers. The unique index
// on name at the storage boundary is the authoritative guard against
// concurrent duplicate creates.
type Repository interface {
	// Create persists a new provider. Returns ErrDuplicateName when the
	// name is taken.
	Create(ctx context.Context, provider Provider) (Provider, error)

	// GetByID retrieves a provider by its identifier.
	GetByID(ctx context.Context, id uuid.UUID) (Provider, error)

	// GetByName retrieves a provider by its unique name.
	GetByName(ctx context.Context, name string) (Provider, error)

	// Update replaces the stored provider identified by provider.ID.
	Update(ctx context.Context, provider Provider) (Provider, error)

	// Delete removes a provider by id.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns all providers ordered by display order then name.
	List(ctx context.Context) ([]Provider, error)
}

// InMemoryRepository implements Repository using in-memory storage.
type InMemoryRepository struct {
	providers map[uuid.UUID]*Provider
	byName    map[string]uuid.UUID
	mutex     sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory provider repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		providers: make(map[uuid.UUID]*Provider),
		byName:    make(map[string]uuid.UUID),
	}
}

func copyProvider(p *Provider) Provider {
	out := *p
	out.Scopes = append([]string(nil), p.Scopes...)
	if p.AdditionalConfig != nil {
		out.AdditionalConfig = make(map[string]string, len(p.AdditionalConfig))
		for k, v := range p.AdditionalConfig {
			out.AdditionalConfig[k] = v
		}
	}
	return out
}

// Create persists a new provider.
func (r *InMemoryRepository) Create(ctx context.Context, provider Provider) (Provider, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.byName[provider.Name]; exists {
		return Provider{}, ErrDuplicateName
	}

	stored := copyProvider(&provider)
	r.providers[provider.ID] = &stored
	r.byName[provider.Name] = provider.ID
	return copyProvider(&stored), nil
}

// GetByID retrieves a provider by its identifier.
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (Provider, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	provider, exists := r.providers[id]
	if !exists {
		return Provider{}, ErrProviderNotFound
	}
	return copyProvider(provider), nil
}

// GetByName retrieves a provider by its unique name.
func (r *InMemoryRepository) GetByName(ctx context.Context, name string) (Provider, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.byName[name]
	if !exists {
		return Provider{}, ErrProviderNotFound
	}
	return copyProvider(r.providers[id]), nil
}

// Update replaces the stored provider identified by provider.ID.
func (r *InMemoryRepository) Update(ctx context.Context, provider Provider) (Provider, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, exists := r.providers[provider.ID]
	if !exists {
		return Provider{}, ErrProviderNotFound
	}

	// Name stays unique; keep the index consistent if it ever changes.
	if existing.Name != provider.Name {
		if _, taken := r.byName[provider.Name]; taken {
			return Provider{}, ErrDuplicateName
		}
		delete(r.byName, existing.Name)
		r.byName[provider.Name] = provider.ID
	}

	stored := copyProvider(&provider)
	r.providers[provider.ID] = &stored
	return copyProvider(&stored), nil
}

// Delete removes a provider by id.
func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	provider, exists := r.providers[id]
	if !exists {
		return ErrProviderNotFound
	}
	delete(r.byName, provider.Name)
	delete(r.providers, id)
	return nil
}

// List returns all providers ordered by display order ascending then name.
func (r *InMemoryRepository) List(ctx context.Context) ([]Provider, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, copyProvider(p))
	}
	sort.Slice(providers, func(i, j int) bool {
		if providers[i].DisplayOrder != providers[j].DisplayOrder {
			return providers[i].DisplayOrder < providers[j].DisplayOrder
		}
		return providers[i].Name < providers[j].Name
	})
	return providers, nil
}
