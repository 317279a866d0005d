package externalprovider

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/idm-admin/pkg/audit"
)

func setupProviderService(t *testing.T) (*Service, *audit.Service) {
	auditService := audit.NewService(audit.NewInMemoryRepository())
	service := NewService(NewInMemoryRepository(), auditService)
	return service, auditService
}

func githubRequest() CreateProviderRequest {
	return CreateProviderRequest{
		ProviderType: TypeGitHub,
		Name:         "github-corp",
		DisplayName:  "Corporate GitHub",
		Enabled:      true,
		ClientID:     "Iv1.abc123",
		ClientSecret: "gh-secret-value",
		Scopes:       []string{"user:email"},
	}
}

func TestService_CreateDefaultsCallbackPath(t *testing.T) {
	service, _ := setupProviderService(t)

	created, err := service.Create(context.Background(), githubRequest())
	require.NoError(t, err)
	assert.Equal(t, "/auth/github/github-corp/callback", created.CallbackPath)
	assert.True(t, created.HasClientSecret)

	// an explicit callback path wins over the default
	req := githubRequest()
	req.Name = "github-oss"
	req.CallbackPath = "/oauth/done"
	created, err = service.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/done", created.CallbackPath)
}

func TestService_CreateRejectsUnknownType(t *testing.T) {
	service, _ := setupProviderService(t)

	req := githubRequest()
	req.ProviderType = "saml"

	_, err := service.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrUnknownProviderType)
}

func TestService_CreateRejectsDuplicateName(t *testing.T) {
	service, _ := setupProviderService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, githubRequest())
	require.NoError(t, err)

	// same name under a different type still collides
	req := githubRequest()
	req.ProviderType = TypeGoogle
	_, err = service.Create(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestService_SecretNeverEchoed(t *testing.T) {
	service, _ := setupProviderService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, githubRequest())
	require.NoError(t, err)

	byName, err := service.GetByName(ctx, "github-corp")
	require.NoError(t, err)
	byID, err := service.GetByID(ctx, created.ID, false)
	require.NoError(t, err)
	listed, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	for _, summary := range []*Summary{byName, byID, &listed[0]} {
		assert.True(t, summary.HasClientSecret)
		assert.NotContains(t, summary.ClientID+summary.DisplayName+summary.CallbackPath, "gh-secret-value")
	}
}

func TestService_UpdatePartial(t *testing.T) {
	service, _ := setupProviderService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, githubRequest())
	require.NoError(t, err)

	displayName := "GitHub (Corp)"
	updated, err := service.Update(ctx, created.ID, UpdateProviderRequest{
		DisplayName: &displayName,
	})
	require.NoError(t, err)

	// only the named field changed
	assert.Equal(t, "GitHub (Corp)", updated.DisplayName)
	assert.Equal(t, created.ClientID, updated.ClientID)
	assert.Equal(t, created.CallbackPath, updated.CallbackPath)
	assert.True(t, updated.Enabled)
	assert.True(t, updated.HasClientSecret)

	// omitting Enabled leaves it alone; setting it flips it
	enabled := false
	updated, err = service.Update(ctx, created.ID, UpdateProviderRequest{Enabled: &enabled})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "GitHub (Corp)", updated.DisplayName)
}

func TestService_UpdateUnknownProvider(t *testing.T) {
	service, _ := setupProviderService(t)

	displayName := "nope"
	_, err := service.Update(context.Background(), uuid.New(), UpdateProviderRequest{
		DisplayName: &displayName,
	})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestService_ToggleEnabled(t *testing.T) {
	service, _ := setupProviderService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, githubRequest())
	require.NoError(t, err)

	toggled, err := service.ToggleEnabled(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	// a disabled provider reads as missing on the enabled-only path
	_, err = service.GetByID(ctx, created.ID, true)
	assert.ErrorIs(t, err, ErrProviderNotFound)

	toggled, err = service.ToggleEnabled(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, toggled.Enabled)
}

func TestService_GetEnabledOrdering(t *testing.T) {
	service, _ := setupProviderService(t)
	ctx := context.Background()

	google := githubRequest()
	google.ProviderType = TypeGoogle
	google.Name = "google-sso"
	google.DisplayOrder = 1
	_, err := service.Create(ctx, google)
	require.NoError(t, err)

	github := githubRequest()
	github.DisplayOrder = 2
	_, err = service.Create(ctx, github)
	require.NoError(t, err)

	disabled := githubRequest()
	disabled.ProviderType = TypeGitee
	disabled.Name = "gitee-public"
	disabled.Enabled = false
	_, err = service.Create(ctx, disabled)
	require.NoError(t, err)

	// same order as google, name breaks the tie
	wechat := githubRequest()
	wechat.ProviderType = TypeWeChat
	wechat.Name = "wechat-cn"
	wechat.DisplayOrder = 1
	_, err = service.Create(ctx, wechat)
	require.NoError(t, err)

	enabled, err := service.GetEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 3)
	assert.Equal(t, "google-sso", enabled[0].Name)
	assert.Equal(t, "wechat-cn", enabled[1].Name)
	assert.Equal(t, "github-corp", enabled[2].Name)

	all, err := service.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestService_GetCredentials(t *testing.T) {
	service, _ := setupProviderService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, githubRequest())
	require.NoError(t, err)

	creds, err := service.GetCredentials(ctx, "github-corp")
	require.NoError(t, err)
	assert.Equal(t, "Iv1.abc123", creds.ClientID)
	assert.Equal(t, "gh-secret-value", creds.ClientSecret)

	// disabled providers never hand out credentials
	_, err = service.ToggleEnabled(ctx, created.ID, false)
	require.NoError(t, err)
	_, err = service.GetCredentials(ctx, "github-corp")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	_, err = service.GetCredentials(ctx, "no-such-provider")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestService_Delete(t *testing.T) {
	service, _ := setupProviderService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, githubRequest())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.GetByName(ctx, "github-corp")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	// the name is free for reuse after deletion
	_, err = service.Create(ctx, githubRequest())
	assert.NoError(t, err)
}

func TestService_MutationsAreAudited(t *testing.T) {
	service, auditService := setupProviderService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, githubRequest())
	require.NoError(t, err)
	_, err = service.ToggleEnabled(ctx, created.ID, false)
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, created.ID))

	success := true
	_, total, err := auditService.Query(ctx, audit.Filter{
		Category: audit.CategoryProvider,
		Success:  &success,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	failed := false
	req := githubRequest()
	req.ProviderType = "ldap"
	_, err = service.Create(ctx, req)
	require.Error(t, err)

	entries, total, err := auditService.Query(ctx, audit.Filter{
		Category: audit.CategoryProvider,
		Success:  &failed,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ErrorMessage)
}
