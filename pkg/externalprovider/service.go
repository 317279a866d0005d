package externalprovider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/idm-admin/pkg/audit"
)

var knownTypes = map[string]bool{
	TypeGitHub: true,
	TypeGoogle: true,
	TypeGitee:  true,
	TypeWeChat: true,
	TypeCustom: true,
}

// Service provides methods for managing external identity provider
// configurations. Secrets are write-only through this service.
type Service struct {
	repository Repository
	auditor    audit.Recorder
}

// NewService creates a new external provider service.
func NewService(repository Repository, auditor audit.Recorder) *Service {
	return &Service{
		repository: repository,
		auditor:    auditor,
	}
}

func (s *Service) recordRejection(ctx context.Context, action, name string, cause error) {
	entry := audit.NewEntry(audit.CategoryProvider, action).
		WithDetails(fmt.Sprintf("name=%s", name)).
		WithError(cause.Error())
	if err := s.auditor.Record(ctx, entry); err != nil {
		slog.Warn("Failed to audit rejected provider mutation",
			"action", action, "name", name, "error", err)
	}
}

// Create registers a new provider. The callback path defaults
// deterministically from the provider type and name when unset.
func (s *Service) Create(ctx context.Context, req CreateProviderRequest) (*Summary, error) {
	if !knownTypes[req.ProviderType] {
		err := fmt.Errorf("%w: %s", ErrUnknownProviderType, req.ProviderType)
		s.recordRejection(ctx, "Create", req.Name, err)
		return nil, err
	}

	callbackPath := req.CallbackPath
	if callbackPath == "" {
		callbackPath = DefaultCallbackPath(req.ProviderType, req.Name)
	}

	now := time.Now().UTC()
	provider := Provider{
		ID:               uuid.New(),
		ProviderType:     req.ProviderType,
		Name:             req.Name,
		DisplayName:      req.DisplayName,
		Enabled:          req.Enabled,
		ClientID:         req.ClientID,
		ClientSecret:     req.ClientSecret,
		CallbackPath:     callbackPath,
		Scopes:           req.Scopes,
		AdditionalConfig: req.AdditionalConfig,
		DisplayOrder:     req.DisplayOrder,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := s.repository.Create(ctx, provider)
	if err != nil {
		s.recordRejection(ctx, "Create", req.Name, err)
		return nil, err
	}

	entry := audit.NewEntry(audit.CategoryProvider, "Create").
		WithDetails(fmt.Sprintf("name=%s type=%s enabled=%t", created.Name, created.ProviderType, created.Enabled))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if delErr := s.repository.Delete(ctx, created.ID); delErr != nil {
			slog.Error("Failed to undo provider create after audit failure",
				"providerID", created.ID, "error", delErr)
		}
		return nil, err
	}

	slog.Info("External provider created", "name", created.Name, "type", created.ProviderType)
	summary := created.summary()
	return &summary, nil
}

// Update applies a partial update: nil fields are left unchanged, Enabled
// only changes when explicitly set.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateProviderRequest) (*Summary, error) {
	existing, err := s.repository.GetByID(ctx, id)
	if err != nil {
		s.recordRejection(ctx, "Update", id.String(), err)
		return nil, err
	}

	updated := existing
	if req.DisplayName != nil {
		updated.DisplayName = *req.DisplayName
	}
	if req.Enabled != nil {
		updated.Enabled = *req.Enabled
	}
	if req.ClientID != nil {
		updated.ClientID = *req.ClientID
	}
	if req.ClientSecret != nil {
		updated.ClientSecret = *req.ClientSecret
	}
	if req.CallbackPath != nil {
		updated.CallbackPath = *req.CallbackPath
	}
	if req.Scopes != nil {
		updated.Scopes = req.Scopes
	}
	if req.AdditionalConfig != nil {
		updated.AdditionalConfig = *req.AdditionalConfig
	}
	if req.DisplayOrder != nil {
		updated.DisplayOrder = *req.DisplayOrder
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repository.Update(ctx, updated)
	if err != nil {
		s.recordRejection(ctx, "Update", existing.Name, err)
		return nil, err
	}

	entry := audit.NewEntry(audit.CategoryProvider, "Update").
		WithDetails(fmt.Sprintf("name=%s secretRotated=%t", existing.Name, req.ClientSecret != nil))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if _, restoreErr := s.repository.Update(ctx, existing); restoreErr != nil {
			slog.Error("Failed to undo provider update after audit failure",
				"providerID", id, "error", restoreErr)
		}
		return nil, err
	}

	summary := saved.summary()
	return &summary, nil
}

// ToggleEnabled sets the enabled flag explicitly.
func (s *Service) ToggleEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*Summary, error) {
	return s.Update(ctx, id, UpdateProviderRequest{Enabled: &enabled})
}

// Delete removes a provider.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repository.GetByID(ctx, id)
	if err != nil {
		s.recordRejection(ctx, "Delete", id.String(), err)
		return err
	}

	if err := s.repository.Delete(ctx, id); err != nil {
		s.recordRejection(ctx, "Delete", existing.Name, err)
		return err
	}

	entry := audit.NewEntry(audit.CategoryProvider, "Delete").
		WithDetails(fmt.Sprintf("name=%s type=%s", existing.Name, existing.ProviderType))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if _, restoreErr := s.repository.Create(ctx, existing); restoreErr != nil {
			slog.Error("Failed to undo provider delete after audit failure",
				"providerID", id, "error", restoreErr)
		}
		return err
	}

	slog.Info("External provider deleted", "name", existing.Name)
	return nil
}

// List returns summaries of all providers, display order then name.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	providers, err := s.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	summaries := make([]Summary, 0, len(providers))
	for i := range providers {
		summaries = append(summaries, providers[i].summary())
	}
	return summaries, nil
}

// GetEnabled returns only enabled providers, ordered by display order
// ascending then name.
func (s *Service) GetEnabled(ctx context.Context) ([]Summary, error) {
	providers, err := s.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	var summaries []Summary
	for i := range providers {
		if providers[i].Enabled {
			summaries = append(summaries, providers[i].summary())
		}
	}
	return summaries, nil
}

// GetByName returns a single provider summary by its unique name.
func (s *Service) GetByName(ctx context.Context, name string) (*Summary, error) {
	provider, err := s.repository.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	summary := provider.summary()
	return &summary, nil
}

// GetByID returns a provider summary by id. With onlyEnabled set, a
// disabled provider reads as not found.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, onlyEnabled bool) (*Summary, error) {
	provider, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if onlyEnabled && !provider.Enabled {
		return nil, ErrProviderNotFound
	}
	summary := provider.summary()
	return &summary, nil
}

// GetCredentials hands the plaintext client credentials to the federation
// flow. This is the only read path that yields the secret; it is never
// exposed through the admin API.
func (s *Service) GetCredentials(ctx context.Context, name string) (*Credentials, error) {
	provider, err := s.repository.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !provider.Enabled {
		return nil, ErrProviderNotFound
	}
	return &Credentials{
		ClientID:     provider.ClientID,
		ClientSecret: provider.ClientSecret,
	}, nil
}
