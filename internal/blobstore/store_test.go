package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linkkeeper/internal/config"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFileStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	stores := map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": sqlite,
	}

	if url := os.Getenv("LINKKEEPER_TEST_NATS_URL"); url != "" {
		nats, err := NewNATSStore(context.Background(), url, "linkkeeper_test")
		require.NoError(t, err)
		t.Cleanup(func() { _ = nats.Close() })
		stores["nats"] = nats
	}
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("absent key", func(t *testing.T) {
				data, ok, err := store.Load(ctx, "never-written")
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Nil(t, data)
			})

			t.Run("save then load", func(t *testing.T) {
				require.NoError(t, store.Save(ctx, KeyCredentials, []byte(`{"ssid":"home"}`)))
				data, ok, err := store.Load(ctx, KeyCredentials)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.JSONEq(t, `{"ssid":"home"}`, string(data))
			})

			t.Run("overwrite", func(t *testing.T) {
				require.NoError(t, store.Save(ctx, KeyAccessPoint, []byte("one")))
				require.NoError(t, store.Save(ctx, KeyAccessPoint, []byte("two")))
				data, ok, err := store.Load(ctx, KeyAccessPoint)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "two", string(data))
			})

			t.Run("invalid key", func(t *testing.T) {
				err := store.Save(ctx, "../escape", []byte("x"))
				require.Error(t, err)
				assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
			})
		})
	}
}

func TestMemory_FailWith(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, KeyUplink, []byte("v1")))

	m.FailWith(errors.New("flash worn out"))
	err := m.Save(ctx, KeyUplink, []byte("v2"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryStorage))
	_, _, err = m.Load(ctx, KeyUplink)
	require.Error(t, err)

	m.FailWith(nil)
	data, ok, err := m.Load(ctx, KeyUplink)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", string(data))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	in := []byte("abc")
	require.NoError(t, m.Save(ctx, KeyUplink, in))
	in[0] = 'x'

	out, _, err := m.Load(ctx, KeyUplink)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, KeyCredentials, []byte("persisted")))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	data, ok, err := second.Load(ctx, KeyCredentials)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		s, err := Open(ctx, config.StorageConfig{Backend: config.StorageFile, Dir: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &FileStore{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := Open(ctx, config.StorageConfig{Backend: config.StorageSQLite, DSN: filepath.Join(t.TempDir(), "lk.db")})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &SQLiteStore{}, s)
	})

	t.Run("memory", func(t *testing.T) {
		s, err := Open(ctx, config.StorageConfig{Backend: config.StorageMemory})
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Backend: "etcd"})
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	})
}
