package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/apitest"
	"github.com/respectcfw/webclient/internal/credstore"
	"github.com/respectcfw/webclient/internal/session"
)

type fixture struct {
	backend *apitest.Server
	seller  *apitest.User
	store   *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := apitest.NewServer(t)
	seller := backend.SeedUser("Seller", "seller@x.com", "secret", "user", "seller")

	state, err := credstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	require.NoError(t, state.Set(credstore.KeyToken, backend.TokenFor(seller)))

	return &fixture{
		backend: backend,
		seller:  seller,
		store:   NewStore(apiclient.NewClient(backend.URL(), state)),
	}
}

func TestFetchItemsWithFilter(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedItem(f.seller, "i1", "Modchip", 25)
	f.backend.SeedItem(f.seller, "i2", "Console shell", 80)
	f.backend.SeedItem(f.seller, "i3", "Modchip installer kit", 120)
	ctx := context.Background()

	require.NoError(t, f.store.FetchItems(ctx, 1, 12, ListFilter{}))
	assert.Len(t, f.store.Items(), 3)
	assert.Equal(t, 1, f.store.TotalPages())
	assert.Equal(t, 1, f.store.CurrentPage())

	require.NoError(t, f.store.FetchItems(ctx, 1, 12, ListFilter{Search: "modchip"}))
	assert.Len(t, f.store.Items(), 2)

	require.NoError(t, f.store.FetchItems(ctx, 1, 12, ListFilter{MinPrice: "50", MaxPrice: "100"}))
	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Console shell", items[0].Title)
	assert.Equal(t, "Seller", items[0].Seller.Name)
}

func TestFetchItemsPaginates(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedItem(f.seller, "i1", "One", 1)
	f.backend.SeedItem(f.seller, "i2", "Two", 2)
	f.backend.SeedItem(f.seller, "i3", "Three", 3)
	ctx := context.Background()

	require.NoError(t, f.store.FetchItems(ctx, 2, 2, ListFilter{}))
	assert.Len(t, f.store.Items(), 1)
	assert.Equal(t, 2, f.store.TotalPages())
	assert.Equal(t, 2, f.store.CurrentPage())
}

func TestFetchUserItems(t *testing.T) {
	f := newFixture(t)
	other := f.backend.SeedUser("Other", "other@x.com", "secret", "user", "other")
	f.backend.SeedItem(f.seller, "i1", "Mine", 10)
	f.backend.SeedItem(other, "i2", "Theirs", 10)
	ctx := context.Background()

	require.NoError(t, f.store.FetchUserItems(ctx, f.seller.ID))
	items := f.store.UserItems()
	require.Len(t, items, 1)
	assert.Equal(t, "Mine", items[0].Title)
}

func TestCreateItemRefetchesFirstPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.CreateItem(ctx, ItemForm{
		Title:       "Custom faceplate",
		Description: "Hand painted",
		Price:       "42.50",
		ContactInfo: "discord: seller#1",
		Image:       &session.FileUpload{Name: "faceplate.png", Content: []byte("png-bytes")},
	})
	require.NoError(t, err)

	items := f.store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Custom faceplate", items[0].Title)
	assert.Equal(t, 42.5, items[0].Price)
	assert.Equal(t, "items/faceplate.png", items[0].Image)
	assert.Equal(t, f.seller.ID, items[0].Seller.ID)
}

func TestCreateItemRejectsMissingPrice(t *testing.T) {
	f := newFixture(t)

	err := f.store.CreateItem(context.Background(), ItemForm{Title: "No price"})
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, 400))
	assert.Equal(t, "title and price required", f.store.Err())
}

func TestDeleteItemFiltersBothLists(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedItem(f.seller, "i1", "Keep", 10)
	f.backend.SeedItem(f.seller, "i2", "Drop", 20)
	ctx := context.Background()

	require.NoError(t, f.store.FetchItems(ctx, 1, 12, ListFilter{}))
	require.NoError(t, f.store.FetchUserItems(ctx, f.seller.ID))
	require.NoError(t, f.store.DeleteItem(ctx, "i2"))

	for _, it := range f.store.Items() {
		assert.NotEqual(t, "i2", it.ID)
	}
	for _, it := range f.store.UserItems() {
		assert.NotEqual(t, "i2", it.ID)
	}
}

func TestDeleteItemRejectsNonOwner(t *testing.T) {
	f := newFixture(t)
	other := f.backend.SeedUser("Other", "other@x.com", "secret", "user", "other")
	f.backend.SeedItem(other, "i1", "Theirs", 10)

	err := f.store.DeleteItem(context.Background(), "i1")
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, 403))
	assert.Equal(t, "Not your item", f.store.Err())
}
