package oauth2client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/idm-admin/pkg/audit"
	"github.com/tendant/idm-admin/pkg/urivalidator"
)

// ClientService provides methods for managing OAuth2 client registrations.
// Every mutation is validated against the current URI policy and written
// through the audit trail: a mutation whose audit write fails is undone.
type ClientService struct {
	repository Repository
	policy     *urivalidator.Store
	auditor    audit.Recorder
}

// NewClientService creates a new client service.
func NewClientService(repository Repository, policy *urivalidator.Store, auditor audit.Recorder) *ClientService {
	return &ClientService{
		repository: repository,
		policy:     policy,
		auditor:    auditor,
	}
}

// validateRequest applies the semantic invariants shared by create and
// update. secretProvided distinguishes "no secret supplied" from rotation.
func (s *ClientService) validateRequest(clientType string, redirectURIs, postLogoutURIs, scopes []string, hasSecret bool) error {
	if clientType != ClientTypePublic && clientType != ClientTypeConfidential {
		return fmt.Errorf("%w: %s", ErrInvalidClientType, clientType)
	}

	settings := s.policy.Current()
	for _, uri := range redirectURIs {
		if err := urivalidator.Validate(uri, settings); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRedirectURI, err)
		}
	}
	for _, uri := range postLogoutURIs {
		if err := urivalidator.Validate(uri, settings); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRedirectURI, err)
		}
	}

	if clientType == ClientTypeConfidential && !hasSecret {
		return ErrMissingSecret
	}
	if len(scopes) == 0 {
		return ErrEmptyScopes
	}
	return nil
}

// recordRejection writes the single failure entry every rejected mutation
// produces.
func (s *ClientService) recordRejection(ctx context.Context, action, clientID string, cause error) {
	entry := audit.NewEntry(audit.CategoryClient, action).
		WithDetails(fmt.Sprintf("clientId=%s", clientID)).
		WithError(cause.Error())
	if err := s.auditor.Record(ctx, entry); err != nil {
		slog.Warn("Failed to audit rejected client mutation",
			"action", action, "clientID", clientID, "error", err)
	}
}

// Create registers a new OAuth2 client.
func (s *ClientService) Create(ctx context.Context, req CreateClientRequest) (*Summary, error) {
	if err := s.validateRequest(req.ClientType, req.RedirectURIs, req.PostLogoutRedirectURIs, req.Scopes, req.ClientSecret != ""); err != nil {
		s.recordRejection(ctx, "Create", req.ClientID, err)
		return nil, err
	}

	var secretHash string
	if req.ClientType == ClientTypeConfidential {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.ClientSecret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash client secret: %w", err)
		}
		secretHash = string(hash)
	}

	now := time.Now().UTC()
	client := Client{
		ClientID:               req.ClientID,
		DisplayName:            req.DisplayName,
		ClientType:             req.ClientType,
		RedirectURIs:           req.RedirectURIs,
		PostLogoutRedirectURIs: req.PostLogoutRedirectURIs,
		Scopes:                 req.Scopes,
		SecretHash:             secretHash,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	created, err := s.repository.Create(ctx, client)
	if err != nil {
		s.recordRejection(ctx, "Create", req.ClientID, err)
		return nil, err
	}

	entry := audit.NewEntry(audit.CategoryClient, "Create").
		WithDetails(fmt.Sprintf("clientId=%s type=%s", created.ClientID, created.ClientType))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if delErr := s.repository.Delete(ctx, created.ClientID); delErr != nil {
			slog.Error("Failed to undo client create after audit failure",
				"clientID", created.ClientID, "error", delErr)
		}
		return nil, err
	}

	slog.Info("OAuth2 client created", "clientID", created.ClientID, "type", created.ClientType)
	summary := created.summary()
	return &summary, nil
}

// Update modifies an existing client. ClientID and ClientType are
// immutable; a nil secret leaves the stored hash unchanged.
func (s *ClientService) Update(ctx context.Context, clientID string, req UpdateClientRequest) (*Summary, error) {
	existing, err := s.repository.GetByClientID(ctx, clientID)
	if err != nil {
		s.recordRejection(ctx, "Update", clientID, err)
		return nil, err
	}

	// Rotating to the empty string is never valid; a client cannot end up
	// authenticating with "" as its secret.
	if req.ClientSecret != nil && *req.ClientSecret == "" {
		s.recordRejection(ctx, "Update", clientID, ErrMissingSecret)
		return nil, ErrMissingSecret
	}

	hasSecret := existing.SecretHash != "" || req.ClientSecret != nil
	if err := s.validateRequest(existing.ClientType, req.RedirectURIs, req.PostLogoutRedirectURIs, existing.Scopes, hasSecret); err != nil {
		s.recordRejection(ctx, "Update", clientID, err)
		return nil, err
	}

	updated := existing
	updated.DisplayName = req.DisplayName
	updated.RedirectURIs = req.RedirectURIs
	updated.PostLogoutRedirectURIs = req.PostLogoutRedirectURIs
	if req.ClientSecret != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.ClientSecret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash client secret: %w", err)
		}
		updated.SecretHash = string(hash)
	}
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repository.Update(ctx, updated)
	if err != nil {
		s.recordRejection(ctx, "Update", clientID, err)
		return nil, err
	}

	entry := audit.NewEntry(audit.CategoryClient, "Update").
		WithDetails(fmt.Sprintf("clientId=%s secretRotated=%t", clientID, req.ClientSecret != nil))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if _, restoreErr := s.repository.Update(ctx, existing); restoreErr != nil {
			slog.Error("Failed to undo client update after audit failure",
				"clientID", clientID, "error", restoreErr)
		}
		return nil, err
	}

	summary := saved.summary()
	return &summary, nil
}

// UpdateScopes replaces the client's scope set wholesale.
func (s *ClientService) UpdateScopes(ctx context.Context, clientID string, scopes []string) (*Summary, error) {
	existing, err := s.repository.GetByClientID(ctx, clientID)
	if err != nil {
		s.recordRejection(ctx, "UpdateScopes", clientID, err)
		return nil, err
	}
	if len(scopes) == 0 {
		s.recordRejection(ctx, "UpdateScopes", clientID, ErrEmptyScopes)
		return nil, ErrEmptyScopes
	}

	updated := existing
	updated.Scopes = scopes
	updated.UpdatedAt = time.Now().UTC()

	saved, err := s.repository.Update(ctx, updated)
	if err != nil {
		s.recordRejection(ctx, "UpdateScopes", clientID, err)
		return nil, err
	}

	entry := audit.NewEntry(audit.CategoryClient, "UpdateScopes").
		WithDetails(fmt.Sprintf("clientId=%s scopes=%d", clientID, len(scopes)))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if _, restoreErr := s.repository.Update(ctx, existing); restoreErr != nil {
			slog.Error("Failed to undo scope update after audit failure",
				"clientID", clientID, "error", restoreErr)
		}
		return nil, err
	}

	summary := saved.summary()
	return &summary, nil
}

// Delete removes a client. The audit entry carries a pre-delete snapshot
// of the display name for traceability.
func (s *ClientService) Delete(ctx context.Context, clientID string) error {
	existing, err := s.repository.GetByClientID(ctx, clientID)
	if err != nil {
		s.recordRejection(ctx, "Delete", clientID, err)
		return err
	}

	if err := s.repository.Delete(ctx, clientID); err != nil {
		s.recordRejection(ctx, "Delete", clientID, err)
		return err
	}

	entry := audit.NewEntry(audit.CategoryClient, "Delete").
		WithDetails(fmt.Sprintf("clientId=%s displayName=%s", clientID, existing.DisplayName))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if _, restoreErr := s.repository.Create(ctx, existing); restoreErr != nil {
			slog.Error("Failed to undo client delete after audit failure",
				"clientID", clientID, "error", restoreErr)
		}
		return err
	}

	slog.Info("OAuth2 client deleted", "clientID", clientID)
	return nil
}

// Get returns a single client summary.
func (s *ClientService) Get(ctx context.Context, clientID string) (*Summary, error) {
	client, err := s.repository.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	summary := client.summary()
	return &summary, nil
}

// List returns summaries of all clients, sorted by clientId.
func (s *ClientService) List(ctx context.Context) ([]Summary, error) {
	clients, err := s.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	summaries := make([]Summary, 0, len(clients))
	for i := range clients {
		summaries = append(summaries, clients[i].summary())
	}
	return summaries, nil
}

// VerifySecret validates a confidential client's credentials for the token
// endpoint. Public clients have no secret and always fail.
func (s *ClientService) VerifySecret(ctx context.Context, clientID, clientSecret string) error {
	client, err := s.repository.GetByClientID(ctx, clientID)
	if err != nil {
		return ErrInvalidCredentials
	}
	if client.SecretHash == "" {
		return ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(clientSecret)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}
