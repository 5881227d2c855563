package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	portmocks "github.com/bnema/campus-session/internal/ports/mocks"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePutGetDelete(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "campus.session", `{"userId":"u1"}`))

	value, err := store.Get(ctx, "campus.session")
	require.NoError(t, err)
	assert.Equal(t, `{"userId":"u1"}`, value)

	require.NoError(t, store.Delete(ctx, "campus.session"))
	_, err = store.Get(ctx, "campus.session")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreWritesVersionedTOMLWithPrivateMode(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	clock := portmocks.NewMockClock(t)
	clock.EXPECT().Now().Return(now).Once()
	store := NewStoreWithClock(root, clock)

	require.NoError(t, store.Put(context.Background(), "campus.session.snapshot", "payload"))

	path := filepath.Join(root, "campus.session.snapshot.toml")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry entrySchema
	require.NoError(t, toml.Unmarshal(data, &entry))
	assert.Equal(t, currentSchemaVersion, entry.Version)
	assert.Equal(t, "campus.session.snapshot", entry.Key)
	assert.Equal(t, "2026-03-02T08:00:00Z", entry.UpdatedAt)
}

func TestStoreRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "campus.session.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 9\nkey = \"campus.session\"\nvalue = \"x\"\n"), 0o600))

	_, err := NewStore(root).Get(context.Background(), "campus.session")
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported storage schema version 9")
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	for _, key := range []string{"", "  ", "../outside", "/etc/passwd", "."} {
		err := store.Put(context.Background(), key, "x")
		assert.Error(t, err, "key %q", key)
	}
}

func TestStoreDeleteMissingKeyIsNoop(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewStore(t.TempDir()).Delete(context.Background(), "missing"))
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore(t.TempDir()).Get(ctx, "campus.session")
	require.ErrorIs(t, err, context.Canceled)
}
