// Package urivalidator validates redirect and callback URIs against
// configurable scheme and host allowlists.
package urivalidator

import (
	"fmt"
	"net/url"
	"strings"
)

// Settings holds the URI validation policy. It is an immutable value:
// Validate never modifies it, and callers should treat a Settings they
// hand out as frozen.
type Settings struct {
	// AllowedSchemes is the set of acceptable URI schemes, compared
	// case-insensitively. Must be non-empty.
	AllowedSchemes []string
	// AllowHTTPOnLoopback permits the http scheme when the host is a
	// loopback address (localhost, 127.0.0.1, ::1).
	AllowHTTPOnLoopback bool
	// AllowedHosts restricts hosts to exact case-insensitive matches.
	// An empty set means no host restriction.
	AllowedHosts []string
}

// DefaultSettings returns the policy applied when nothing is configured:
// https and http allowed, http restricted to loopback, no host restriction.
func DefaultSettings() Settings {
	return Settings{
		AllowedSchemes:      []string{"https", "http"},
		AllowHTTPOnLoopback: true,
	}
}

// Clone returns a deep copy so a stored snapshot cannot be mutated through
// shared slices.
func (s Settings) Clone() Settings {
	out := Settings{AllowHTTPOnLoopback: s.AllowHTTPOnLoopback}
	if s.AllowedSchemes != nil {
		out.AllowedSchemes = make([]string, len(s.AllowedSchemes))
		copy(out.AllowedSchemes, s.AllowedSchemes)
	}
	if s.AllowedHosts != nil {
		out.AllowedHosts = make([]string, len(s.AllowedHosts))
		copy(out.AllowedHosts, s.AllowedHosts)
	}
	return out
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Validate checks a single URI against the policy. It is a pure function:
// no side effects, deterministic, safe for concurrent use.
func Validate(rawURI string, settings Settings) error {
	parsed, err := url.Parse(rawURI)
	if err != nil {
		return fmt.Errorf("%w: not a well-formed URI: %v", ErrInvalidURI, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: URI must be absolute: %s", ErrInvalidURI, rawURI)
	}

	scheme := strings.ToLower(parsed.Scheme)
	allowed := false
	for _, s := range settings.AllowedSchemes {
		if strings.EqualFold(s, scheme) {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: scheme %q is not allowed", ErrInvalidURI, scheme)
	}

	host := parsed.Hostname()
	if scheme == "http" {
		if !settings.AllowHTTPOnLoopback || !isLoopbackHost(host) {
			return fmt.Errorf("%w: http is only allowed on loopback hosts", ErrInvalidURI)
		}
	}

	// An empty AllowedHosts set means unrestricted, not "no hosts allowed".
	if len(settings.AllowedHosts) > 0 {
		matched := false
		for _, h := range settings.AllowedHosts {
			if strings.EqualFold(h, host) {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("%w: host %q is not in the allowed host list", ErrInvalidURI, host)
		}
	}

	return nil
}
