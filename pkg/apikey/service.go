package apikey

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/idm-admin/pkg/audit"
)

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// dummySecretHash absorbs one bcrypt compare when a prefix lookup comes
// back empty, so rejecting an unknown prefix costs the same as rejecting
// a wrong secret under a known one.
var dummySecretHash, _ = bcrypt.GenerateFromPassword([]byte("ak_dummy"), bcrypt.DefaultCost)

// Service provides methods for issuing, verifying, and revoking API keys.
type Service struct {
	repository Repository
	auditor    audit.Recorder
}

// NewService creates a new API key service with the provided repository
// and audit sink.
func NewService(repository Repository, auditor audit.Recorder) *Service {
	return &Service{
		repository: repository,
		auditor:    auditor,
	}
}

// generateSecret returns a fresh secret of the form ak_<32 random chars>.
func generateSecret() (string, error) {
	var b strings.Builder
	b.WriteString(SecretMarker)
	max := big.NewInt(int64(len(secretAlphabet)))
	for i := 0; i < secretRandomLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random secret: %w", err)
		}
		b.WriteByte(secretAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Issue mints a new API key. The returned FullSecret is visible exactly
// once; only its bcrypt hash is persisted.
func (s *Service) Issue(ctx context.Context, name string, expiresAt *time.Time, scopes []string) (*IssueResult, error) {
	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash api key secret: %w", err)
	}

	key := APIKey{
		ID:         uuid.New(),
		Name:       name,
		KeyPrefix:  secret[:KeyPrefixLength],
		SecretHash: string(hash),
		Scopes:     scopes,
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
	}

	created, err := s.repository.Create(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	entry := audit.NewEntry(audit.CategoryApiKey, "Issue").
		WithDetails(fmt.Sprintf("name=%s prefix=%s", name, key.KeyPrefix))
	if err := s.auditor.Record(ctx, entry); err != nil {
		// No silent mutation without a trail.
		if delErr := s.repository.Delete(ctx, created.ID); delErr != nil {
			slog.Error("Failed to undo api key issue after audit failure",
				"keyID", created.ID, "error", delErr)
		}
		return nil, err
	}

	slog.Info("API key issued", "keyID", created.ID, "name", name, "prefix", key.KeyPrefix)
	return &IssueResult{
		ID:         created.ID,
		Name:       created.Name,
		FullSecret: secret,
		KeyPrefix:  created.KeyPrefix,
	}, nil
}

// Verify checks a presented secret and returns the authenticated identity.
// Revocation takes precedence over expiry when both hold, since revocation
// is operator-intentional. Malformed input and hash mismatch both surface
// as ErrKeyNotFound; the precise reason goes to the audit trail only.
func (s *Service) Verify(ctx context.Context, presented string) (*Identity, error) {
	if !strings.HasPrefix(presented, SecretMarker) || len(presented) < KeyPrefixLength {
		s.auditFailure(ctx, "", ErrKeyMalformed)
		return nil, ErrKeyNotFound
	}

	prefix := presented[:KeyPrefixLength]
	candidates, err := s.repository.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	// Compare against every candidate in the bucket, and against a dummy
	// hash when the bucket is empty, so a prefix hit and a prefix miss
	// take the same work.
	var matched *APIKey
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].SecretHash), []byte(presented)) == nil {
			matched = &candidates[i]
		}
	}
	if len(candidates) == 0 {
		_ = bcrypt.CompareHashAndPassword(dummySecretHash, []byte(presented))
	}
	if matched == nil {
		s.auditFailure(ctx, prefix, ErrKeyNotFound)
		return nil, ErrKeyNotFound
	}

	now := time.Now().UTC()
	if matched.IsRevoked() {
		s.auditFailure(ctx, prefix, ErrKeyRevoked)
		return nil, ErrKeyRevoked
	}
	if matched.IsExpired(now) {
		s.auditFailure(ctx, prefix, ErrKeyExpired)
		return nil, ErrKeyExpired
	}

	// Touch the hot read path asynchronously; verification must not
	// serialize behind mutation locks.
	go func(id uuid.UUID, at time.Time) {
		if err := s.repository.TouchLastUsed(context.Background(), id, at); err != nil {
			slog.Warn("Failed to update api key last used", "keyID", id, "error", err)
		}
	}(matched.ID, now)

	return &Identity{
		SubjectID:  matched.ID.String(),
		Username:   matched.Name,
		AuthMethod: AuthMethodAPIKey,
		Scopes:     matched.Scopes,
	}, nil
}

// auditFailure records the precise verification failure for operators.
// The requester only ever sees the generic error.
func (s *Service) auditFailure(ctx context.Context, prefix string, reason error) {
	entry := audit.NewEntry(audit.CategoryApiKey, "Verify").
		WithDetails(fmt.Sprintf("prefix=%s", prefix)).
		WithError(reason.Error())
	if err := s.auditor.Record(ctx, entry); err != nil {
		slog.Warn("Failed to audit api key verification failure", "error", err)
	}
}

// Revoke marks a key revoked. Revocation is irreversible.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID, reason string) error {
	previous, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repository.Revoke(ctx, id, time.Now().UTC(), reason); err != nil {
		return err
	}

	entry := audit.NewEntry(audit.CategoryApiKey, "Revoke").
		WithDetails(fmt.Sprintf("name=%s prefix=%s reason=%s", previous.Name, previous.KeyPrefix, reason))
	if err := s.auditor.Record(ctx, entry); err != nil {
		if restoreErr := s.repository.Restore(ctx, previous); restoreErr != nil {
			slog.Error("Failed to undo api key revoke after audit failure",
				"keyID", id, "error", restoreErr)
		}
		return err
	}

	slog.Info("API key revoked", "keyID", id, "reason", reason)
	return nil
}

// List returns summaries of all keys. Summaries never include the secret
// hash or the raw secret.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	keys, err := s.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	now := time.Now().UTC()
	summaries := make([]Summary, 0, len(keys))
	for i := range keys {
		var summary Summary
		if err := copier.Copy(&summary, &keys[i]); err != nil {
			return nil, fmt.Errorf("failed to map api key: %w", err)
		}
		summary.IsExpired = keys[i].IsExpired(now)
		summary.IsRevoked = keys[i].IsRevoked()
		summary.IsActive = keys[i].IsActive(now)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
