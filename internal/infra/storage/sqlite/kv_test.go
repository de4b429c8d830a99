package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKV(t *testing.T) (*KV, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rentme.db")
	kv, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv, path
}

func TestKVRoundTrip(t *testing.T) {
	kv, _ := openTestKV(t)
	ctx := context.Background()

	_, ok, err := kv.GetItem(ctx, "auth-storage")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.SetItem(ctx, "auth-storage", []byte(`{"state":{},"version":1}`)))
	require.NoError(t, kv.SetItem(ctx, "auth-storage", []byte(`{"state":{"isAuthenticated":true},"version":1}`)))

	got, ok, err := kv.GetItem(ctx, "auth-storage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":{"isAuthenticated":true},"version":1}`, string(got))

	require.NoError(t, kv.RemoveItem(ctx, "auth-storage"))
	require.NoError(t, kv.RemoveItem(ctx, "auth-storage"))
	_, ok, err = kv.GetItem(ctx, "auth-storage")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVSurvivesReopen(t *testing.T) {
	kv, path := openTestKV(t)
	ctx := context.Background()
	require.NoError(t, kv.SetItem(ctx, "chat-storage", []byte(`{"state":{"chats":[]},"version":1}`)))
	require.NoError(t, kv.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.GetItem(ctx, "chat-storage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"state":{"chats":[]},"version":1}`, string(got))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}
