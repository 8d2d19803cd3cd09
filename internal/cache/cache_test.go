package cache

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](0)
	calls := 0
	create := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrCreate("a", create)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	v, err = c.GetOrCreate("a", create)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Stats{Len: 1, Hits: 1, Misses: 1}, c.Stats())
}

func TestGetOrCreateError(t *testing.T) {
	c := New[string, int](0)
	boom := errors.New("boom")
	_, err := c.GetOrCreate("a", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, string](2)
	var evicted []int
	c.OnEvict(func(k int, _ string) { evicted = append(evicted, k) })

	c.Set(1, "one")
	c.Set(2, "two")
	_, ok := c.Get(1)
	require.True(t, ok)
	c.Set(3, "three")

	assert.Equal(t, []int{2}, evicted)
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(2)
	assert.False(t, ok)
}

func TestDeleteSkipsEviction(t *testing.T) {
	c := New[int, int](0)
	c.OnEvict(func(int, int) { t.Error("unexpected eviction") })
	c.Set(1, 1)
	assert.True(t, c.Delete(1))
	assert.False(t, c.Delete(1))
}

func TestDrainOrder(t *testing.T) {
	c := New[int, int](0)
	for i := range 4 {
		c.Set(i, i*10)
	}
	c.Get(0)

	var keys []int
	c.Drain(func(k, v int) {
		assert.Equal(t, k*10, v)
		keys = append(keys, k)
	})
	assert.Equal(t, []int{1, 2, 3, 0}, keys)
	assert.Zero(t, c.Len())
}

func BenchmarkCacheGetOrCreate(b *testing.B) {
	c := New[string, int](1000)
	for i := 0; b.Loop(); i++ {
		c.GetOrCreate(strconv.Itoa(i%100), func() (int, error) {
			return i, nil
		})
	}
}
