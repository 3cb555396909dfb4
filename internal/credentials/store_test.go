package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested"))

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds, "absent file is not an error")

	require.NoError(t, store.Save(ctx, models.Credentials{AuthToken: "aut", SessionToken: "ses"}))

	creds, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "aut", creds.AuthToken)
	assert.Equal(t, "ses", creds.SessionToken)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// empty tokens are stored as given
	require.NoError(t, store.Save(ctx, models.Credentials{}))
	creds, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.True(t, creds.IsEmpty())

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{"), 0600))

	_, err := NewFileStore(dir).Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(mr.Host(), mr.Server().Addr().Port, "", 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, store.Save(ctx, models.Credentials{AuthToken: "aut", SessionToken: "ses"}))

	creds, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, models.Credentials{AuthToken: "aut", SessionToken: "ses"}, *creds)
	assert.Equal(t, "aut", mr.HGet(RedisKey, "nid_aut"))
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Server().Addr().Port
	mr.Close()

	_, err := NewRedisStore(host, port, "", 0)
	assert.Error(t, err)
}
