package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvalidator(t *testing.T) (*RedisInvalidator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedisInvalidator(client, logger), mr
}

func TestInvalidateDropsTaggedEntries(t *testing.T) {
	invalidator, mr := newTestInvalidator(t)

	require.NoError(t, mr.Set(CartTag(9), "cached-cart"))
	require.NoError(t, mr.Set(ProductTag(3), "cached-product"))
	require.NoError(t, mr.Set(ProductTag(4), "untouched"))

	err := invalidator.Invalidate(context.Background(), CartTag(9), ProductTag(3))
	require.NoError(t, err)

	assert.False(t, mr.Exists(CartTag(9)))
	assert.False(t, mr.Exists(ProductTag(3)))
	assert.True(t, mr.Exists(ProductTag(4)))
}

func TestInvalidateNoTagsIsNoOp(t *testing.T) {
	invalidator, _ := newTestInvalidator(t)
	assert.NoError(t, invalidator.Invalidate(context.Background()))
}

func TestInvalidateMissingKeys(t *testing.T) {
	invalidator, _ := newTestInvalidator(t)
	// Deleting absent keys is not an error.
	assert.NoError(t, invalidator.Invalidate(context.Background(), CartTag(404)))
}

func TestInvalidateConnectionFailure(t *testing.T) {
	invalidator, mr := newTestInvalidator(t)
	mr.Close()
	assert.Error(t, invalidator.Invalidate(context.Background(), CartTag(9)))
}

func TestTagFormats(t *testing.T) {
	assert.Equal(t, "cart:user:9", CartTag(9))
	assert.Equal(t, "product:3", ProductTag(3))
}
