package oauth2client

import (
	"context"
	"sort"
	"sync"
)

// Repository defines data access for OAuth2 clients. The unique index on
// client_id at the storage boundary is the authoritative guard against
// concurrent duplicate creates.
type Repository interface {
	// Create persists a new client. Returns ErrDuplicateClientID when the
	// clientId is taken.
	Create(ctx context.Context, client Client) (Client, error)

	// GetByClientID retrieves a client by its clientId.
	GetByClientID(ctx context.Context, clientID string) (Client, error)

	// Update replaces the stored client identified by client.ClientID.
	Update(ctx context.Context, client Client) (Client, error)

	// Delete removes a client by clientId. Deletion is terminal.
	Delete(ctx context.Context, clientID string) error

	// List returns all clients sorted by clientId.
	List(ctx context.Context) ([]Client, error)
}

// InMemoryRepository implements Repository using in-memory storage.
type InMemoryRepository struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory client repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		clients: make(map[string]*Client),
	}
}

func copyClient(c *Client) Client {
	out := *c
	out.RedirectURIs = append([]string(nil), c.RedirectURIs...)
	out.PostLogoutRedirectURIs = append([]string(nil), c.PostLogoutRedirectURIs...)
	out.Scopes = append([]string(nil), c.Scopes...)
	return out
}

// Create persists a new client.
func (r *InMemoryRepository) Create(ctx context.Context, client Client) (Client, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.clients[client.ClientID]; exists {
		return Client{}, ErrDuplicateClientID
	}

	stored := copyClient(&client)
	r.clients[client.ClientID] = &stored
	return copyClient(&stored), nil
}

// GetByClientID retrieves a client by its clientId.
func (r *InMemoryRepository) GetByClientID(ctx context.Context, clientID string) (Client, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	client, exists := r.clients[clientID]
	if !exists {
		return Client{}, ErrClientNotFound
	}
	return copyClient(client), nil
}

// Update replaces the stored client identified by client.ClientID.
func (r *InMemoryRepository) Update(ctx context.Context, client Client) (Client, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.clients[client.ClientID]; !exists {
		return Client{}, ErrClientNotFound
	}

	stored := copyClient(&client)
	r.clients[client.ClientID] = &stored
	return copyClient(&stored), nil
}

// Delete removes a client by clientId.
func (r *InMemoryRepository) Delete(ctx context.Context, clientID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.clients[clientID]; !exists {
		return ErrClientNotFound
	}
	delete(r.clients, clientID)
	return nil
}

// List returns all clients sorted by clientId for stable ordering.
func (r *InMemoryRepository) List(ctx context.Context) ([]Client, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, copyClient(client))
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].ClientID < clients[j].ClientID
	})
	return clients, nil
}
