package apikey

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/idm-admin/pkg/audit"
)

func setupService(t *testing.T) (*Service, *audit.Service) {
	auditService := audit.NewService(audit.NewInMemoryRepository())
	return NewService(NewInMemoryRepository(), auditService), auditService
}

func TestService_IssueAndVerify(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, []string{"clients:read"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.FullSecret, SecretMarker))
	assert.Equal(t, result.FullSecret[:KeyPrefixLength], result.KeyPrefix)
	assert.Equal(t, "ci-bot", result.Name)

	identity, err := service.Verify(ctx, result.FullSecret)
	require.NoError(t, err)
	assert.Equal(t, result.ID.String(), identity.SubjectID)
	assert.Equal(t, "ci-bot", identity.Username)
	assert.Equal(t, AuthMethodAPIKey, identity.AuthMethod)
	assert.True(t, identity.HasScope("clients:read"))
	assert.False(t, identity.HasScope("clients:write"))
}

func TestService_VerifyRejectsMutatedSecret(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, nil)
	require.NoError(t, err)

	// flip the last character
	secret := []byte(result.FullSecret)
	if secret[len(secret)-1] == 'A' {
		secret[len(secret)-1] = 'B'
	} else {
		secret[len(secret)-1] = 'A'
	}

	_, err = service.Verify(ctx, string(secret))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestService_VerifyMalformedLooksLikeNotFound(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	for _, presented := range []string{"", "ak", "bearer-token", "sk_wrongmarker123"} {
		_, err := service.Verify(ctx, presented)
		assert.ErrorIs(t, err, ErrKeyNotFound, presented)
	}
}

func TestService_VerifyExpired(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	result, err := service.Issue(ctx, "short-lived", &past, nil)
	require.NoError(t, err)

	_, err = service.Verify(ctx, result.FullSecret)
	assert.ErrorIs(t, err, ErrKeyExpired)
}

func TestService_RevokeThenVerify(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, nil)
	require.NoError(t, err)

	require.NoError(t, service.Revoke(ctx, result.ID, "compromised"))

	_, err = service.Verify(ctx, result.FullSecret)
	assert.ErrorIs(t, err, ErrKeyRevoked)
}

func TestService_RevokedTakesPrecedenceOverExpired(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	result, err := service.Issue(ctx, "dead-key", &past, nil)
	require.NoError(t, err)
	require.NoError(t, service.Revoke(ctx, result.ID, "cleanup"))

	_, err = service.Verify(ctx, result.FullSecret)
	assert.ErrorIs(t, err, ErrKeyRevoked)
}

func TestService_RevokeIsTerminal(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, nil)
	require.NoError(t, err)

	require.NoError(t, service.Revoke(ctx, result.ID, "first"))
	err = service.Revoke(ctx, result.ID, "second")
	assert.ErrorIs(t, err, ErrAlreadyRevoked)
}

func TestService_RevokeUnknownKey(t *testing.T) {
	service, _ := setupService(t)

	err := service.Revoke(context.Background(), uuid.New(), "whatever")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestService_ListNeverExposesSecret(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, []string{"audit:read"})
	require.NoError(t, err)

	summaries, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, result.ID, summary.ID)
	assert.Equal(t, result.KeyPrefix, summary.KeyPrefix)
	assert.True(t, summary.IsActive)
	assert.False(t, summary.IsExpired)
	assert.False(t, summary.IsRevoked)
	// only the short prefix is visible, never the full secret
	assert.Less(t, len(summary.KeyPrefix), len(result.FullSecret))
}

func TestService_ListFlagsAfterRevoke(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, nil)
	require.NoError(t, err)
	require.NoError(t, service.Revoke(ctx, result.ID, "rotated"))

	summaries, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].IsRevoked)
	assert.False(t, summaries[0].IsActive)
	assert.NotNil(t, summaries[0].RevokedAt)
}

func TestService_MutationsAreAudited(t *testing.T) {
	service, auditService := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, nil)
	require.NoError(t, err)
	require.NoError(t, service.Revoke(ctx, result.ID, "done"))

	success := true
	entries, total, err := auditService.Query(ctx, audit.Filter{
		Category: audit.CategoryApiKey,
		Success:  &success,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	actions := []string{entries[0].Action, entries[1].Action}
	assert.Contains(t, actions, "Issue")
	assert.Contains(t, actions, "Revoke")
}

func TestService_VerifyFailureReasonReachesAudit(t *testing.T) {
	service, auditService := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, nil)
	require.NoError(t, err)
	require.NoError(t, service.Revoke(ctx, result.ID, "compromised"))

	_, err = service.Verify(ctx, result.FullSecret)
	require.ErrorIs(t, err, ErrKeyRevoked)

	failure := false
	entries, _, err := auditService.Query(ctx, audit.Filter{
		Category: audit.CategoryApiKey,
		Success:  &failure,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Verify", entries[0].Action)
	assert.Contains(t, entries[0].ErrorMessage, "revoked")
}

func TestService_VerifyRejectionCostIsUniform(t *testing.T) {
	service, _ := setupService(t)
	ctx := context.Background()

	result, err := service.Issue(ctx, "ci-bot", nil, nil)
	require.NoError(t, err)

	wrongUnderKnownPrefix := result.KeyPrefix + strings.Repeat("x", secretRandomLength)
	unknownPrefix := SecretMarker + strings.Repeat("z", secretRandomLength)

	timeReject := func(secret string) time.Duration {
		start := time.Now()
		_, err := service.Verify(ctx, secret)
		assert.ErrorIs(t, err, ErrKeyNotFound)
		return time.Since(start)
	}

	// warm up so neither path pays one-time costs
	timeReject(wrongUnderKnownPrefix)
	timeReject(unknownPrefix)

	var known, unknown time.Duration
	for i := 0; i < 3; i++ {
		known += timeReject(wrongUnderKnownPrefix)
		unknown += timeReject(unknownPrefix)
	}

	// Both paths must pay a hash compare. An unknown prefix that returns
	// in microseconds while a known one takes tens of milliseconds would
	// let a caller probe which prefixes exist.
	assert.Greater(t, unknown*10, known,
		"unknown-prefix rejection (%v) must not be orders of magnitude faster than known-prefix rejection (%v)", unknown, known)
}
