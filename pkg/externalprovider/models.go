// Package externalprovider manages federated identity provider
// configurations (GitHub, Google, Gitee, WeChat, custom).
package externalprovider

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Known provider types.
const (
	TypeGitHub = "github"
	TypeGoogle = "google"
	TypeGitee  = "gitee"
	TypeWeChat = "wechat"
	TypeCustom = "custom"
)

// Provider is a federated identity source the platform delegates
// authentication to. ClientSecret is write-only through the service: no
// read operation returns it in plaintext.
type Provider struct {
	ID               uuid.UUID
	ProviderType     string
	Name             string // unique across providers
	DisplayName      string
	Enabled          bool
	ClientID         string
	ClientSecret     string // plaintext in memory; encrypted at rest
	CallbackPath     string
	Scopes           []string
	AdditionalConfig map[string]string
	DisplayOrder     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DefaultCallbackPath derives the callback path deterministically from the
// provider type and name when none is configured.
func DefaultCallbackPath(providerType, name string) string {
	return fmt.Sprintf("/auth/%s/%s/callback", providerType, name)
}

// Summary is the read model exposed by the service. The client secret is
// masked, never echoed back.
type Summary struct {
	ID               uuid.UUID         `json:"id"`
	ProviderType     string            `json:"provider_type"`
	Name             string            `json:"name"`
	DisplayName      string            `json:"display_name"`
	Enabled          bool              `json:"enabled"`
	ClientID         string            `json:"client_id"`
	HasClientSecret  bool              `json:"has_client_secret"`
	CallbackPath     string            `json:"callback_path"`
	Scopes           []string          `json:"scopes,omitempty"`
	AdditionalConfig map[string]string `json:"additional_config,omitempty"`
	DisplayOrder     int               `json:"display_order"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// CreateProviderRequest carries the fields for registering a provider.
type CreateProviderRequest struct {
	ProviderType     string            `json:"provider_type"`
	Name             string            `json:"name"`
	DisplayName      string            `json:"display_name"`
	Enabled          bool              `json:"enabled"`
	ClientID         string            `json:"client_id"`
	ClientSecret     string            `json:"client_secret"`
	CallbackPath     string            `json:"callback_path,omitempty"`
	Scopes           []string          `json:"scopes,omitempty"`
	AdditionalConfig map[string]string `json:"additional_config,omitempty"`
	DisplayOrder     int               `json:"display_order"`
}

// UpdateProviderRequest is a partial update: nil means "leave unchanged".
// Enabled is an explicit tri-state toggle for the same reason.
type UpdateProviderRequest struct {
	DisplayName      *string            `json:"display_name,omitempty"`
	Enabled          *bool              `json:"enabled,omitempty"`
	ClientID         *string            `json:"client_id,omitempty"`
	ClientSecret     *string            `json:"client_secret,omitempty"`
	CallbackPath     *string            `json:"callback_path,omitempty"`
	Scopes           []string           `json:"scopes,omitempty"`
	AdditionalConfig *map[string]string `json:"additional_config,omitempty"`
	DisplayOrder     *int               `json:"display_order,omitempty"`
}

// Credentials is the internal read model handed to the federation flow.
// It is the only path that yields the plaintext secret and is never
// exposed through the admin API.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (p *Provider) summary() Summary {
	return Summary{
		ID:               p.ID,
		ProviderType:     p.ProviderType,
		Name:             p.Name,
		DisplayName:      p.DisplayName,
		Enabled:          p.Enabled,
		ClientID:         p.ClientID,
		HasClientSecret:  p.ClientSecret != "",
		CallbackPath:     p.CallbackPath,
		Scopes:           p.Scopes,
		AdditionalConfig: p.AdditionalConfig,
		DisplayOrder:     p.DisplayOrder,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
