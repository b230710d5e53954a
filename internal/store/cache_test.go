package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPage struct {
	Items []string `json:"items"`
}

func TestCache_RoundTrip(t *testing.T) {
	c := NewCache(NewMemoryKV(), time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "clients", "list:active:25", cachedPage{Items: []string{"a", "b"}}))

	var got cachedPage
	require.True(t, c.Get(ctx, "clients", "list:active:25", &got))
	assert.Equal(t, []string{"a", "b"}, got.Items)
}

func TestCache_MissOnUnknownScope(t *testing.T) {
	c := NewCache(NewMemoryKV(), time.Minute)

	var got cachedPage
	assert.False(t, c.Get(context.Background(), "clients", "list:archived:25", &got))
}

func TestCache_InvalidateDropsAllScopesOfEntity(t *testing.T) {
	c := NewCache(NewMemoryKV(), time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "clients", "list::25", cachedPage{Items: []string{"a"}}))
	require.NoError(t, c.Set(ctx, "clients", "list:active:50", cachedPage{Items: []string{"b"}}))
	require.NoError(t, c.Set(ctx, "tasks", "list::25", cachedPage{Items: []string{"c"}}))

	require.NoError(t, c.Invalidate(ctx, "clients"))

	var got cachedPage
	assert.False(t, c.Get(ctx, "clients", "list::25", &got))
	assert.False(t, c.Get(ctx, "clients", "list:active:50", &got))
	assert.True(t, c.Get(ctx, "tasks", "list::25", &got), "other entities stay cached")
}

func TestCache_TTLExpires(t *testing.T) {
	c := NewCache(NewMemoryKV(), 5*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "clients", "list::25", cachedPage{Items: []string{"a"}}))
	time.Sleep(15 * time.Millisecond)

	var got cachedPage
	assert.False(t, c.Get(ctx, "clients", "list::25", &got))
}
