package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Salamony4all/Estem8-V1/internal/config"
)

func TestMemoryClient_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(1 << 20)
	defer c.Close()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(1 << 20)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_NonPositiveTTLNeverExpires(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"zero", 0},
		{"negative", -time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			c := NewMemoryClient(1 << 20)
			defer c.Close()

			require.NoError(t, c.Set(ctx, "k", []byte("v"), tc.ttl))
			got, err := c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)
		})
	}
}

func TestMemoryClient_EvictsExpiringBeforePermanent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "permanent", []byte("12345"), 0))
	require.NoError(t, c.Set(ctx, "expiring", []byte("12345"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("12345"), time.Hour))

	_, err := c.Get(ctx, "permanent")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "expiring")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_EvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "first", []byte("12345"), time.Minute))
	require.NoError(t, c.Set(ctx, "second", []byte("12345"), time.Hour))
	require.NoError(t, c.Set(ctx, "third", []byte("12345"), time.Hour))

	_, err := c.Get(ctx, "first")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "third")
	assert.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryClient_OversizedValueSkipped(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(4)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "big", []byte("too large"), time.Minute))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryClient_OverwriteKeepsSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(ctx, "same", []byte("12345678"), time.Minute))
	}
	assert.Equal(t, 1, c.Len())
}

func TestResultKey(t *testing.T) {
	a := ResultKey("tabula", "en", []byte("pdf"))
	b := ResultKey("tabula", "en", []byte("pdf"))
	c := ResultKey("tabula", "ch", []byte("pdf"))
	d := ResultKey("remote", "en", []byte("pdf"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, "result:tabula:en:")
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, config.CacheConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(ctx, config.CacheConfig{Driver: "memory", MaxSizeMB: 1})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.IsType(t, &MemoryClient{}, c)
	require.NoError(t, c.Close())

	_, err = New(ctx, config.CacheConfig{Driver: "memcached"})
	assert.Error(t, err)
}
