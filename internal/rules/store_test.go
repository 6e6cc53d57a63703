package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/apitest"
	"github.com/respectcfw/webclient/internal/credstore"
)

func newTestStore(t *testing.T, asAdmin bool) (*Store, *apitest.Server) {
	t.Helper()

	backend := apitest.NewServer(t)
	state, err := credstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })

	if asAdmin {
		admin := backend.SeedUser("Root", "admin@x.com", "secret", "admin", "root")
		require.NoError(t, state.Set(credstore.KeyToken, backend.TokenFor(admin)))
	}
	return NewStore(apiclient.NewClient(backend.URL(), state)), backend
}

func TestFetchFiltersByActive(t *testing.T) {
	store, backend := newTestStore(t, false)
	backend.SeedRule("Be kind", 1, true)
	backend.SeedRule("No spoilers", 2, true)
	backend.SeedRule("Retired rule", 3, false)
	ctx := context.Background()

	require.NoError(t, store.Fetch(ctx, nil))
	assert.Len(t, store.Rules(), 3)

	active := true
	require.NoError(t, store.Fetch(ctx, &active))
	rules := store.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "Be kind", rules[0].Title)

	inactive := false
	require.NoError(t, store.Fetch(ctx, &inactive))
	require.Len(t, store.Rules(), 1)
	assert.Equal(t, "Retired rule", store.Rules()[0].Title)
}

func TestCreateRefetches(t *testing.T) {
	store, _ := newTestStore(t, true)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, RuleInput{Title: "Be kind", Order: 1, IsActive: true}))

	rules := store.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "Be kind", rules[0].Title)
	assert.NotEmpty(t, rules[0].ID, "list refreshed from the server, not patched locally")
}

func TestUpdateRefetches(t *testing.T) {
	store, backend := newTestStore(t, true)
	seeded := backend.SeedRule("Be kind", 1, true)
	ctx := context.Background()

	require.NoError(t, store.Update(ctx, seeded.ID, RuleInput{Title: "Be kinder", Order: 1, IsActive: true}))

	rules := store.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "Be kinder", rules[0].Title)
}

func TestDeleteFiltersLocally(t *testing.T) {
	store, backend := newTestStore(t, true)
	first := backend.SeedRule("Be kind", 1, true)
	backend.SeedRule("No spoilers", 2, true)
	ctx := context.Background()

	require.NoError(t, store.Fetch(ctx, nil))
	require.Len(t, store.Rules(), 2)

	require.NoError(t, store.Delete(ctx, first.ID))
	rules := store.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "No spoilers", rules[0].Title)
}

func TestMutationsRequireAdmin(t *testing.T) {
	store, backend := newTestStore(t, false)
	seeded := backend.SeedRule("Be kind", 1, true)
	ctx := context.Background()

	require.Error(t, store.Create(ctx, RuleInput{Title: "Sneaky"}))
	require.Error(t, store.Delete(ctx, seeded.ID))
	assert.NotEmpty(t, store.Err())
}
