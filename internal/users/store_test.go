package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/apitest"
	"github.com/respectcfw/webclient/internal/credstore"
)

func newAdminStore(t *testing.T) (*Store, *apitest.Server) {
	t.Helper()

	backend := apitest.NewServer(t)
	admin := backend.SeedUser("Root", "admin@x.com", "secret", "admin", "root")

	state, err := credstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	require.NoError(t, state.Set(credstore.KeyToken, backend.TokenFor(admin)))

	return NewStore(apiclient.NewClient(backend.URL(), state)), backend
}

func TestFetchUsersByRole(t *testing.T) {
	store, backend := newAdminStore(t)
	backend.SeedUser("Alice", "a@x.com", "secret", "user", "alice")
	backend.SeedUser("Bob", "b@x.com", "secret", "user", "bob")
	ctx := context.Background()

	require.NoError(t, store.FetchUsers(ctx, 1, 10, ""))
	assert.Len(t, store.Users(), 3)

	require.NoError(t, store.FetchUsers(ctx, 1, 10, "admin"))
	users := store.Users()
	require.Len(t, users, 1)
	assert.Equal(t, "Root", users[0].Name)
}

func TestFetchStreamersSearchAndPagination(t *testing.T) {
	store, backend := newAdminStore(t)
	backend.SeedUser("StreamerOne", "s1@x.com", "secret", "user", "one")
	backend.SeedUser("StreamerTwo", "s2@x.com", "secret", "user", "two")
	ctx := context.Background()

	require.NoError(t, store.FetchStreamers(ctx, 1, 2, ""))
	assert.Len(t, store.Streamers(), 2)
	pg := store.StreamersPagination()
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 3, pg.Total)
	assert.Equal(t, 2, pg.Pages)

	require.NoError(t, store.FetchStreamers(ctx, 1, 10, "StreamerTwo"))
	streamers := store.Streamers()
	require.Len(t, streamers, 1)
	assert.Equal(t, "StreamerTwo", streamers[0].Name)
}

func TestCreatePrependsReturnedRecord(t *testing.T) {
	store, _ := newAdminStore(t)
	ctx := context.Background()

	require.NoError(t, store.FetchUsers(ctx, 1, 10, ""))
	require.Len(t, store.Users(), 1)

	require.NoError(t, store.Create(ctx, AccountInput{
		Name:     "Newcomer",
		Email:    "new@x.com",
		Password: "secret",
		Role:     "user",
		Slug:     "newcomer",
	}))

	users := store.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "Newcomer", users[0].Name, "created user prepended")
	assert.NotEmpty(t, users[0].ID)
}

func TestUpdateMergesIntoBothLists(t *testing.T) {
	store, backend := newAdminStore(t)
	alice := backend.SeedUser("Alice", "a@x.com", "secret", "user", "alice")
	ctx := context.Background()

	require.NoError(t, store.FetchUsers(ctx, 1, 10, ""))
	require.NoError(t, store.FetchStreamers(ctx, 1, 10, ""))

	require.NoError(t, store.Update(ctx, alice.ID, AccountInput{Name: "Alicia"}))

	for _, u := range store.Users() {
		if u.ID == alice.ID {
			assert.Equal(t, "Alicia", u.Name)
		}
	}
	for _, st := range store.Streamers() {
		if st.ID == alice.ID {
			assert.Equal(t, "Alicia", st.Name)
		}
	}
}

func TestDeleteDropsFromBothLists(t *testing.T) {
	store, backend := newAdminStore(t)
	alice := backend.SeedUser("Alice", "a@x.com", "secret", "user", "alice")
	ctx := context.Background()

	require.NoError(t, store.FetchUsers(ctx, 1, 10, ""))
	require.NoError(t, store.FetchStreamers(ctx, 1, 10, ""))
	require.NoError(t, store.Delete(ctx, alice.ID))

	for _, u := range store.Users() {
		assert.NotEqual(t, alice.ID, u.ID)
	}
	for _, st := range store.Streamers() {
		assert.NotEqual(t, alice.ID, st.ID)
	}
}
