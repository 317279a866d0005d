// Package oauth2client manages OAuth2/OIDC client registrations.
package oauth2client

import (
	"time"
)

// Client types. The type is immutable after creation; changing it requires
// delete and recreate.
const (
	ClientTypePublic       = "public"
	ClientTypeConfidential = "confidential"
)

// Client represents a registered OAuth2 client. The secret, when present,
// is stored as a one-way bcrypt hash.
type Client struct {
	ClientID               string
	DisplayName            string
	ClientType             string // "public" or "confidential"
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	Scopes                 []string
	SecretHash             string // empty for public clients
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Summary is the read model returned by the service. It never carries the
// secret in any form.
type Summary struct {
	ClientID               string    `json:"client_id"`
	DisplayName            string    `json:"display_name"`
	ClientType             string    `json:"client_type"`
	RedirectURIs           []string  `json:"redirect_uris"`
	PostLogoutRedirectURIs []string  `json:"post_logout_redirect_uris,omitempty"`
	Scopes                 []string  `json:"scopes"`
	HasSecret              bool      `json:"has_secret"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// CreateClientRequest carries the fields for registering a new client.
// Shape validation (required fields, lengths) happens at the transport
// layer; this package performs semantic validation only.
type CreateClientRequest struct {
	ClientID               string   `json:"client_id"`
	DisplayName            string   `json:"display_name"`
	ClientType             string   `json:"client_type"`
	RedirectURIs           []string `json:"redirect_uris"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris,omitempty"`
	Scopes                 []string `json:"scopes"`
	ClientSecret           string   `json:"client_secret,omitempty"`
}

// UpdateClientRequest carries the mutable fields of a client. ClientID and
// ClientType are immutable post-creation. A nil ClientSecret leaves the
// stored secret unchanged; a non-nil one replaces it.
type UpdateClientRequest struct {
	DisplayName            string   `json:"display_name"`
	RedirectURIs           []string `json:"redirect_uris"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris,omitempty"`
	ClientSecret           *string  `json:"client_secret,omitempty"`
}

func (c *Client) summary() Summary {
	return Summary{
		ClientID:               c.ClientID,
		DisplayName:            c.DisplayName,
		ClientType:             c.ClientType,
		RedirectURIs:           c.RedirectURIs,
		PostLogoutRedirectURIs: c.PostLogoutRedirectURIs,
		Scopes:                 c.Scopes,
		HasSecret:              c.SecretHash != "",
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}
