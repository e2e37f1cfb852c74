package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_FirstSeen(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.FirstSeen(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.FirstSeen(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := s.FirstSeen(ctx, "key-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.FirstSeen(ctx, "key-1", time.Millisecond)
	require.NoError(t, err)
	assert.True(t, first)

	time.Sleep(5 * time.Millisecond)

	again, err := s.FirstSeen(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, again, "expired key counts as first sighting")
}
