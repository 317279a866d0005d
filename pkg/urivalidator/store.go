package urivalidator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tendant/idm-admin/pkg/audit"
)

// Store holds the process-wide validation settings and supports hot
// updates at runtime. Readers get an immutable snapshot; updates are
// audited mutations.
type Store struct {
	auditor  audit.Recorder
	settings Settings
	mutex    sync.RWMutex
}

// NewStore creates a settings store with the given initial settings.
func NewStore(initial Settings, auditor audit.Recorder) *Store {
	return &Store{
		auditor:  auditor,
		settings: initial.Clone(),
	}
}

// Current returns a snapshot of the active settings.
func (s *Store) Current() Settings {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.settings.Clone()
}

// Update replaces the active settings. The previous settings are restored
// if the audit write fails, so a settings change never lands without a
// trail.
func (s *Store) Update(ctx context.Context, settings Settings, actorID, actorName string) error {
	entry := audit.NewEntry(audit.CategoryPolicy, "Update").
		WithActor(actorID, actorName).
		WithDetails(describeSettings(settings))

	if len(settings.AllowedSchemes) == 0 {
		entry = entry.WithError("allowed schemes must not be empty")
		if err := s.auditor.Record(ctx, entry); err != nil {
			return err
		}
		return fmt.Errorf("%w: allowed schemes must not be empty", ErrInvalidSettings)
	}

	s.mutex.Lock()
	previous := s.settings
	s.settings = settings.Clone()
	s.mutex.Unlock()

	if err := s.auditor.Record(ctx, entry); err != nil {
		s.mutex.Lock()
		s.settings = previous
		s.mutex.Unlock()
		return fmt.Errorf("failed to audit settings update: %w", err)
	}

	slog.Info("Validation policy settings updated",
		"allowedSchemes", settings.AllowedSchemes,
		"allowHTTPOnLoopback", settings.AllowHTTPOnLoopback,
		"allowedHosts", settings.AllowedHosts)
	return nil
}

// Validate checks a URI against the current snapshot.
func (s *Store) Validate(rawURI string) error {
	return Validate(rawURI, s.Current())
}

func describeSettings(s Settings) string {
	hosts := "any"
	if len(s.AllowedHosts) > 0 {
		hosts = strings.Join(s.AllowedHosts, ",")
	}
	return fmt.Sprintf("schemes=%s loopbackHTTP=%t hosts=%s",
		strings.Join(s.AllowedSchemes, ","), s.AllowHTTPOnLoopback, hosts)
}
