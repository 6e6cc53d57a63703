package credstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, ok := store.Get(KeyToken)
	require.False(t, ok)

	require.NoError(t, store.Set(KeyToken, "abc123"))
	v, ok := store.Get(KeyToken)
	require.True(t, ok)
	require.Equal(t, "abc123", v)

	require.NoError(t, store.Set(KeyToken, "def456"))
	v, _ = store.Get(KeyToken)
	require.Equal(t, "def456", v)
}

func TestTokenEmptyWhenUnset(t *testing.T) {
	t.Parallel()

	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.Empty(t, store.Token())

	require.NoError(t, store.Set(KeyToken, "tok"))
	require.Equal(t, "tok", store.Token())
}

func TestClearRemovesAllSessionArtifacts(t *testing.T) {
	t.Parallel()

	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Set(KeyToken, "tok"))
	require.NoError(t, store.Set(KeyRefreshToken, "refresh"))
	require.NoError(t, store.Set(KeyAuthSnapshot, `{"isAuthenticated":true}`))

	store.Clear()

	for _, key := range []string{KeyToken, KeyRefreshToken, KeyAuthSnapshot} {
		_, ok := store.Get(key)
		require.False(t, ok, "key %s should be gone", key)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyToken, "survives-restart"))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	require.Equal(t, "survives-restart", reopened.Token())
}

func TestDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Set(KeyRefreshToken, "r"))
	require.NoError(t, store.Delete(KeyRefreshToken))
	require.NoError(t, store.Delete(KeyRefreshToken))

	_, ok := store.Get(KeyRefreshToken)
	require.False(t, ok)
}
