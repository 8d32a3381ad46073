package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "currency:rate:USD", "1.08", 0))

	var rate string
	found, err := c.Get(ctx, "currency:rate:USD", &rate)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1.08", rate)

	found, err = c.Get(ctx, "currency:rate:GBP", &rate)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))

	now = now.Add(2 * time.Minute)
	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "discount:auto", []string{"a"}, 0))
	require.NoError(t, c.Set(ctx, "discount:code:SAVE10", "x", 0))
	require.NoError(t, c.Set(ctx, "promotion:running", "y", 0))

	require.NoError(t, c.DeletePattern(ctx, "discount:*"))

	var s string
	found, _ := c.Get(ctx, "discount:code:SAVE10", &s)
	assert.False(t, found)
	found, _ = c.Get(ctx, "promotion:running", &s)
	assert.True(t, found)
}
