package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	return NewService(NewInMemoryRepository())
}

func TestService_RecordAssignsIDAndTimestamp(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	entry := NewEntry(CategoryClient, "Create").
		WithActor("user-1", "alice").
		WithDetails("clientId=spa.portal").
		WithIP("203.0.113.7")
	require.NoError(t, service.Record(ctx, entry))

	entries, total, err := service.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	got := entries[0]
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", got.ID.String())
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.True(t, got.Success)
	assert.Empty(t, got.ErrorMessage)
}

func TestService_ErrorMessageOnlyOnFailure(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	require.NoError(t, service.Record(ctx, NewEntry(CategoryApiKey, "Revoke")))
	require.NoError(t, service.Record(ctx, NewEntry(CategoryApiKey, "Revoke").
		WithError("api key already revoked")))

	success := true
	entries, _, err := service.Query(ctx, Filter{Success: &success})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ErrorMessage)

	failure := false
	entries, _, err = service.Query(ctx, Filter{Success: &failure})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "api key already revoked", entries[0].ErrorMessage)
}

func seedEntries(t *testing.T, service *Service, n int, category string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, service.Record(ctx, NewEntry(category, "Create")))
	}
}

func TestService_QueryFilters(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	seedEntries(t, service, 3, CategoryClient)
	seedEntries(t, service, 2, CategoryProvider)
	require.NoError(t, service.Record(ctx, NewEntry(CategoryApiKey, "Verify").
		WithDetails("prefix=ak_12345").
		WithError("api key has expired")))

	entries, total, err := service.Query(ctx, Filter{Category: CategoryClient})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, entries, 3)

	// keyword matches action or details
	entries, total, err = service.Query(ctx, Filter{Keyword: "ak_12345"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Verify", entries[0].Action)

	entries, total, err = service.Query(ctx, Filter{Keyword: "create"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	// date range excluding everything
	past := time.Now().UTC().Add(-time.Hour)
	_, total, err = service.Query(ctx, Filter{To: &past})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestService_QueryPagination(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()
	seedEntries(t, service, 7, CategoryClient)

	entries, total, err := service.Query(ctx, Filter{Skip: 0, Take: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	assert.Len(t, entries, 3)

	entries, total, err = service.Query(ctx, Filter{Skip: 6, Take: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	assert.Len(t, entries, 1)

	// Take is capped; asking for more than the cap is not an error
	_, _, err = service.Query(ctx, Filter{Take: MaxPageSize + 1})
	require.NoError(t, err)
}

func TestService_ListCategories(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	seedEntries(t, service, 1, CategoryProvider)
	seedEntries(t, service, 1, CategoryClient)
	seedEntries(t, service, 2, CategoryClient)

	categories, err := service.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{CategoryClient, CategoryProvider}, categories)
}

func TestService_ExportMatchesQuery(t *testing.T) {
	service := setupService(t)
	ctx := context.Background()

	seedEntries(t, service, 4, CategoryClient)
	seedEntries(t, service, 2, CategoryApiKey)

	filter := Filter{Category: CategoryClient}
	entries, total, err := service.Query(ctx, filter)
	require.NoError(t, err)

	rows, err := service.Export(ctx, filter)
	require.NoError(t, err)

	// export is query without pagination over the same snapshot
	assert.EqualValues(t, total, len(rows))
	require.Len(t, rows, len(entries))
	for i := range rows {
		assert.Equal(t, entries[i].Action, rows[i].Action)
		assert.Equal(t, entries[i].Category, rows[i].Category)
		assert.Equal(t, entries[i].CreatedAt, rows[i].CreatedAt)
	}
}

func TestService_RecordStampsClientIP(t *testing.T) {
	service := setupService(t)
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	err := service.Record(ctx, NewEntry(CategoryClient, "Create"))
	require.NoError(t, err)

	entries, _, err := service.Query(ctx, Filter{Category: CategoryClient})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.7", entries[0].IPAddress)

	// an explicitly set address wins over the context
	entry := NewEntry(CategoryClient, "Update")
	entry.IPAddress = "198.51.100.9"
	require.NoError(t, service.Record(ctx, entry))

	entries, _, err = service.Query(ctx, Filter{Category: CategoryClient, Keyword: "Update"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "198.51.100.9", entries[0].IPAddress)
}
