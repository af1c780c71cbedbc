package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictsFirstInserted(t *testing.T) {
	const n = 4
	c, err := New[int, string](n)
	require.NoError(t, err)

	for i := 0; i <= n; i++ {
		c.Add(i, "v")
	}
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, n, stats.Entries)

	_, ok := c.Get(0)
	assert.False(t, ok)
	for i := 1; i <= n; i++ {
		_, ok := c.Get(i)
		assert.True(t, ok, "key %d", i)
	}
}

func TestGetPromotesRecency(t *testing.T) {
	c, err := New[string, int](2)
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	_, ok := c.Get("a")
	require.True(t, ok)
	assert.True(t, c.Add("c", 3), "expected an eviction")

	_, ok = c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestGetOrCreate(t *testing.T) {
	c, err := New[Key, int](8)
	require.NoError(t, err)
	key := Key{Pass: "alpha-test", Signature: "00ff", Name: "epilogue"}

	calls := 0
	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate(key, func() (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(2), c.Stats().Hits)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestGetOrCreateDoesNotCacheErrors(t *testing.T) {
	c, err := New[string, int](8)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.GetOrCreate("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Stats().Entries)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	c, err := New[string, int](8)
	require.NoError(t, err)

	var calls atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCreate("shared", func() (int, error) {
				calls.Add(1)
				return 7, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	wg.Wait()
	// Callers arriving after the first create finished hit the cache.
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidSize(t *testing.T) {
	_, err := New[string, int](0)
	assert.Error(t, err)
}
