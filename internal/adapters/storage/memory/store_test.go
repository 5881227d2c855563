package memory

import (
	"context"
	"testing"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "campus.session")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, "campus.session", "v"))
	value, err := store.Get(ctx, "campus.session")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, "campus.session"))
	assert.Zero(t, store.Len())
}
