// Package apikey manages long-lived bearer credentials: minting, hashing,
// verification, and revocation.
package apikey

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SecretMarker is the fixed recognizable prefix of every generated
	// secret. Only bearer tokens carrying it are considered API keys.
	SecretMarker = "ak_"

	// KeyPrefixLength is the number of leading characters of the full
	// secret stored in clear for lookup and display.
	KeyPrefixLength = 8

	// secretRandomLength is the number of random characters after the marker.
	secretRandomLength = 32
)

// APIKey is the persisted form of a credential. SecretHash is one-way;
// the raw secret is returned exactly once at creation and never stored.
type APIKey struct {
	ID           uuid.UUID
	Name         string
	KeyPrefix    string
	SecretHash   string
	Scopes       []string
	CreatedAt    time.Time
	ExpiresAt    *time.Time
	RevokedAt    *time.Time
	RevokeReason string
	LastUsedAt   *time.Time
}

// IsExpired reports whether the key has passed its expiry at the given instant.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// IsRevoked reports whether the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// IsActive reports whether the key is neither expired nor revoked.
func (k *APIKey) IsActive(now time.Time) bool {
	return !k.IsExpired(now) && !k.IsRevoked()
}

// Summary is the read model exposed on list operations. It never carries
// the secret hash or the raw secret.
type Summary struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	IsExpired  bool       `json:"is_expired"`
	IsRevoked  bool       `json:"is_revoked"`
	IsActive   bool       `json:"is_active"`
}

// IssueResult is returned once at creation. FullSecret is the only time
// the raw secret is ever visible.
type IssueResult struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	FullSecret string    `json:"full_secret"`
	KeyPrefix  string    `json:"key_prefix"`
}

// Identity is the claims set attached to a request authenticated with an
// API key. Downstream authorization reads this without depending on any
// identity framework type.
type Identity struct {
	SubjectID  string
	Username   string
	AuthMethod string
	Scopes     []string
}

// AuthMethodAPIKey marks requests authenticated via API key rather than
// interactive login.
const AuthMethodAPIKey = "api_key"

// HasScope reports whether the identity carries the named scope.
func (i *Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
