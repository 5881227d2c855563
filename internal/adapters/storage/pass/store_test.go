package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubStore(run runFunc) *Store {
	store := NewStore("")
	store.run = run
	return store
}

func TestStorePutInsertsUnderPrefix(t *testing.T) {
	t.Parallel()

	called := false
	store := stubStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		called = true
		assert.Equal(t, []string{"insert", "-m", "-f", "campus/campus.session"}, args)
		assert.Equal(t, "{\"a\":1}\n", input)
		return "", "", nil
	})

	require.NoError(t, store.Put(context.Background(), "campus.session", `{"a":1}`))
	assert.True(t, called)
}

func TestStoreGetTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	store := stubStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		assert.Equal(t, []string{"show", "campus/campus.session.snapshot"}, args)
		assert.Empty(t, input)
		return "{\"a\":1}\n", "", nil
	})

	value, err := store.Get(context.Background(), "campus.session.snapshot")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, value)
}

func TestStoreGetMapsMissingEntry(t *testing.T) {
	t.Parallel()

	store := stubStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		return "", "Error: campus/campus.session is not in the password store.", errors.New("exit status 1")
	})

	_, err := store.Get(context.Background(), "campus.session")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := stubStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		return "", "gpg: decryption failed", errors.New("exit status 2")
	})

	_, err := store.Get(context.Background(), "campus.session")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "campus/campus.session")
	assert.ErrorContains(t, err, "gpg: decryption failed")
	assert.NotErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreDeleteIgnoresMissingEntry(t *testing.T) {
	t.Parallel()

	store := stubStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		assert.Equal(t, []string{"rm", "-f", "sessions/campus.session"}, args)
		return "", "Error: sessions/campus.session is not in the password store.", errors.New("exit status 1")
	})
	store.prefix = "sessions"

	require.NoError(t, store.Delete(context.Background(), "campus.session"))
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store := stubStore(func(ctx context.Context, input string, args ...string) (string, string, error) {
		t.Fatalf("pass should not run for %v", args)
		return "", "", nil
	})

	for _, key := range []string{"", "../etc", "/abs"} {
		require.Error(t, store.Put(context.Background(), key, "v"), key)
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	store := stubStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "campus.session")
	assert.ErrorIs(t, err, context.Canceled)
}
