// Package app holds process configuration loaded from the environment.
package app

import (
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/idm-admin/pkg/urivalidator"
)

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `env:"APP_HOST" env-default:"localhost"`
	Port uint16 `env:"APP_PORT" env-default:"8080"`
}

// DatabaseConfig contains persistence settings. An empty URL selects the
// in-memory repositories.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" env-default:""`
}

// SecurityConfig contains secret-handling settings.
type SecurityConfig struct {
	// ProviderEncryptionKey protects external provider client secrets at
	// rest. Required when a database is configured.
	ProviderEncryptionKey string `env:"PROVIDER_ENCRYPTION_KEY" env-default:""`
}

// PolicyConfig seeds the URI validation policy. The policy is hot-updatable
// through the admin API afterwards.
type PolicyConfig struct {
	AllowedSchemes      string `env:"POLICY_ALLOWED_SCHEMES" env-default:"https,http"`
	AllowHTTPOnLoopback bool   `env:"POLICY_ALLOW_HTTP_ON_LOOPBACK" env-default:"true"`
	AllowedHosts        string `env:"POLICY_ALLOWED_HOSTS" env-default:""`
}

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Policy   PolicyConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ValidationSettings converts the policy config into the validator's
// settings type.
func (c PolicyConfig) ValidationSettings() urivalidator.Settings {
	settings := urivalidator.Settings{
		AllowedSchemes:      splitList(c.AllowedSchemes),
		AllowHTTPOnLoopback: c.AllowHTTPOnLoopback,
		AllowedHosts:        splitList(c.AllowedHosts),
	}
	if len(settings.AllowedSchemes) == 0 {
		settings.AllowedSchemes = urivalidator.DefaultSettings().AllowedSchemes
	}
	return settings
}
