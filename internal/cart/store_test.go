package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/apitest"
	"github.com/respectcfw/webclient/internal/credstore"
)

// newTestStore returns a cart store signed in as a buyer, with two
// listings (i1 at 10, i2 at 5) owned by someone else.
func newTestStore(t *testing.T) (*Store, *apitest.Server) {
	t.Helper()

	backend := apitest.NewServer(t)
	seller := backend.SeedUser("Seller", "s@x.com", "secret", "user", "seller")
	backend.SeedItem(seller, "i1", "Modchip", 10)
	backend.SeedItem(seller, "i2", "Console shell", 5)

	buyer := backend.SeedUser("Buyer", "b@x.com", "secret", "user", "buyer")

	state, err := credstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	require.NoError(t, state.Set(credstore.KeyToken, backend.TokenFor(buyer)))

	api := apiclient.NewClient(backend.URL(), state)
	return NewStore(api), backend
}

func TestFetchEmptyCart(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Fetch(context.Background()))
	assert.Empty(t, store.Items())
	assert.Zero(t, store.Total())
	assert.False(t, store.Busy())
}

func TestFetchIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "i1"))

	require.NoError(t, store.Fetch(ctx))
	first := store.Items()
	require.NoError(t, store.Fetch(ctx))
	second := store.Items()

	assert.Equal(t, first, second)
}

func TestAddRefetchesServerTruthAndOpensPanel(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Add(context.Background(), "i1"))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "i1", items[0].ID)
	assert.Equal(t, "Modchip", items[0].Title)
	assert.Equal(t, 10.0, items[0].Price)
	assert.Equal(t, "Seller", items[0].SellerName)
	assert.Equal(t, 1, items[0].Quantity)
	assert.True(t, store.IsOpen())
}

func TestAddTwoItemsTotals(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "i1"))
	require.NoError(t, store.Add(ctx, "i2"))

	items := store.Items()
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, 1, it.Quantity)
	}
	assert.Equal(t, 15.0, store.Total())
}

func TestAddSameItemIncrementsQuantity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "i1"))
	require.NoError(t, store.Add(ctx, "i1"))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 20.0, store.Total())
}

func TestRemoveRefetches(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "i1"))
	require.NoError(t, store.Add(ctx, "i2"))
	require.NoError(t, store.Remove(ctx, "i1"))

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "i2", items[0].ID)
	assert.Equal(t, 5.0, store.Total())
}

func TestClearEmptiesImmediately(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "i1"))
	require.NoError(t, store.Add(ctx, "i2"))
	require.NotEmpty(t, store.Items())

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.Items())
	assert.Zero(t, store.Total())

	// The server agrees without a refetch being required.
	var count int64
	backend.DB.Model(&apitest.CartEntry{}).Count(&count)
	assert.Zero(t, count)
}

func TestAddFailureLeavesLocalStateAlone(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "i1"))
	before := store.Items()

	err := store.Add(ctx, "no-such-item")
	require.Error(t, err)

	assert.Equal(t, before, store.Items())
	assert.False(t, store.Busy())
}

func TestMutationLeavesLocalEqualToServerTruth(t *testing.T) {
	store, backend := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "i1"))
	require.NoError(t, store.Add(ctx, "i2"))
	require.NoError(t, store.Remove(ctx, "i2"))

	// A second store sharing the same session must fetch exactly what
	// the first one already holds.
	state, err := credstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })

	var buyer apitest.User
	require.NoError(t, backend.DB.First(&buyer, "email = ?", "b@x.com").Error)
	require.NoError(t, state.Set(credstore.KeyToken, backend.TokenFor(&buyer)))

	fresh := NewStore(apiclient.NewClient(backend.URL(), state))
	require.NoError(t, fresh.Fetch(ctx))

	assert.Equal(t, fresh.Items(), store.Items())
}

func TestOpenCloseToggle(t *testing.T) {
	store, _ := newTestStore(t)

	assert.False(t, store.IsOpen())
	store.Open()
	assert.True(t, store.IsOpen())
	store.Close()
	assert.False(t, store.IsOpen())
	store.Toggle()
	assert.True(t, store.IsOpen())
	store.Toggle()
	assert.False(t, store.IsOpen())
}
