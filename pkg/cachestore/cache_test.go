package cachestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(cfg Config) *Cache {
	if cfg.SweepPeriod <= 0 {
		cfg.SweepPeriod = time.Hour
	}
	return New(cfg, zap.NewNop())
}

func TestGetAfterSetReturnsExactValue(t *testing.T) {
	c := newTestCache(Config{})
	defer c.Close()

	c.Set("k1", "hello", time.Minute, nil)
	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestGetMissAfterTTLExpiry(t *testing.T) {
	c := newTestCache(Config{})
	defer c.Close()

	c.Set("k1", "hello", time.Millisecond, nil)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestHasReflectsExpiry(t *testing.T) {
	c := newTestCache(Config{})
	defer c.Close()

	c.Set("k1", 1, time.Millisecond, nil)
	time.Sleep(5 * time.Millisecond)
	assert.False(t, c.Has("k1"))
}

func TestDeleteRemovesEntryAndAccountsBytes(t *testing.T) {
	c := newTestCache(Config{})
	defer c.Close()

	c.Set("k1", "some value", time.Minute, nil)
	before := c.Stats().BytesUsed
	assert.Greater(t, before, int64(0))

	c.Delete("k1")
	assert.Equal(t, int64(0), c.Stats().BytesUsed)
	_, ok := c.Get("k1")
	assert.False(t, ok)
}

func TestClearResetsStats(t *testing.T) {
	c := newTestCache(Config{})
	defer c.Close()

	c.Set("a", "x", time.Minute, nil)
	c.Set("b", "y", time.Minute, nil)
	c.Clear()

	stats := c.Stats()
	assert.Equal(t, int64(0), stats.BytesUsed)
	assert.Equal(t, 0, stats.EntryCount)
}

// TestByteBudgetNeverExceedsMax asserts the spec.md §8 cache-budget
// invariant: bytesUsed never exceeds maxBytes after any sequence of sets.
func TestByteBudgetNeverExceedsMax(t *testing.T) {
	maxBytes := int64(2000)
	c := newTestCache(Config{MaxBytes: maxBytes, MaxEntries: 1000})
	defer c.Close()

	longString := make([]byte, 100)
	for i := 0; i < 200; i++ {
		c.Set(keyFor(i), string(longString), time.Minute, nil)
		assert.LessOrEqual(t, c.Stats().BytesUsed, maxBytes)
	}
}

// TestEntryCountNeverExceedsMax asserts the spec.md §8 cache-budget
// invariant on entry count.
func TestEntryCountNeverExceedsMax(t *testing.T) {
	c := newTestCache(Config{MaxEntries: 10, MaxBytes: 10 * 1024 * 1024})
	defer c.Close()

	for i := 0; i < 50; i++ {
		c.Set(keyFor(i), i, time.Minute, nil)
		assert.LessOrEqual(t, c.Stats().EntryCount, 10)
	}
}

// TestLRUEvictsLeastRecentlyUsed verifies that touching an entry via Get
// protects it from capacity-triggered eviction ahead of an untouched one.
func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestCache(Config{MaxEntries: 2, MaxBytes: 10 * 1024 * 1024})
	defer c.Close()

	c.Set("a", 1, time.Minute, nil)
	c.Set("b", 2, time.Minute, nil)

	// Touch "a" so "b" becomes the least recently used.
	_, _ = c.Get("a")

	c.Set("c", 3, time.Minute, nil)

	_, hasA := c.Get("a")
	_, hasB := c.Get("b")
	_, hasC := c.Get("c")

	assert.True(t, hasA)
	assert.False(t, hasB)
	assert.True(t, hasC)
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	c := newTestCache(Config{})
	defer c.Close()

	c.Set("k1", "x", time.Millisecond, nil)
	time.Sleep(5 * time.Millisecond)

	c.Sweep()
	assert.Equal(t, 0, c.Stats().EntryCount)
}

func keyFor(i int) string {
	return "k" + string(rune('a'+(i%26))) + string(rune('0'+(i/26)%10))
}
