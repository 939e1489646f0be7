// Package cachestore implements the process-local Cache component from
// spec.md §4.4: adaptive TTL, LRU access order, byte-size accounting,
// periodic sweep and memory-pressure reclaim.
package cachestore

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	// DefaultMaxBytes is 64 MiB, per spec.md §4.4.
	DefaultMaxBytes = 64 * 1024 * 1024
	// DefaultMaxEntries is 1000, per spec.md §4.4.
	DefaultMaxEntries = 1000
	// DefaultTTL is 1800s, per spec.md §4.4.
	DefaultTTL = 1800 * time.Second
	// DefaultSweepPeriod is 300s, per spec.md §4.4.
	DefaultSweepPeriod = 300 * time.Second

	evictionTargetRatio = 0.8
	sweepPressureRatio  = 0.9
	sweepEvictFraction  = 0.1
)

type entry struct {
	value         interface{}
	createdAt     time.Time
	expiresAt     time.Time
	lastAccessAt  time.Time
	approxSize    int64
	contentType   string
	metadata      map[string]interface{}
}

// Stats is a snapshot of Cache occupancy and hit/miss counters, used for the
// periodic stats logging described in SPEC_FULL.md and surfaced at
// /api/cache/clean-adjacent diagnostics.
type Stats struct {
	BytesUsed  int64
	EntryCount int
	Hits       int64
	Misses     int64
}

// Cache is a process-wide, mutex-guarded key-value store with TTL, LRU
// eviction and a byte budget. The zero value is not usable; construct with
// New.
type Cache struct {
	mu         sync.Mutex
	store      *lru.Cache[string, *entry]
	bytesUsed  int64
	maxBytes   int64
	maxEntries int
	defaultTTL time.Duration

	hits, misses int64

	logger    *zap.Logger
	sweepStop chan struct{}
	sweepDone chan struct{}
}

// Config carries the construction parameters for a Cache. Zero values fall
// back to the spec's defaults.
type Config struct {
	MaxBytes    int64
	MaxEntries  int
	DefaultTTL  time.Duration
	SweepPeriod time.Duration
}

// New constructs a Cache and starts its background sweep goroutine.
// Callers must call Close to stop the sweep goroutine and release
// resources.
func New(cfg Config, logger *zap.Logger) *Cache {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.SweepPeriod <= 0 {
		cfg.SweepPeriod = DefaultSweepPeriod
	}

	c := &Cache{
		maxBytes:   cfg.MaxBytes,
		maxEntries: cfg.MaxEntries,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger,
		sweepStop:  make(chan struct{}),
		sweepDone:  make(chan struct{}),
	}

	store, err := lru.NewWithEvict[string, *entry](cfg.MaxEntries, func(key string, e *entry) {
		c.bytesUsed -= e.approxSize
	})
	if err != nil {
		// Only possible if MaxEntries <= 0, already guarded above.
		panic(err)
	}
	c.store = store

	go c.sweepLoop(cfg.SweepPeriod)

	return c
}

// Get returns the value for key, or (nil, false) on miss or expiry.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	if c.isExpired(e) {
		c.store.Remove(key)
		c.misses++
		return nil, false
	}
	e.lastAccessAt = time.Now()
	c.hits++
	return e.value, true
}

// Has reports whether key has a live (non-expired) entry, evicting it first
// if it has already expired.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.Peek(key)
	if !ok {
		return false
	}
	if c.isExpired(e) {
		c.store.Remove(key)
		return false
	}
	return true
}

// Set inserts or replaces the entry for key with the given TTL (the
// Cache's default TTL is used when ttl <= 0) and optional metadata.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration, metadata map[string]interface{}) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	size := approximateByteSize(value)
	now := time.Now()
	newEntry := &entry{
		value:        value,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessAt: now,
		approxSize:   size,
		metadata:     metadata,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Peek(key); ok {
		c.store.Remove(key)
	}

	projected := c.bytesUsed + size
	if projected > c.maxBytes {
		target := int64(float64(c.maxBytes) * evictionTargetRatio)
		for c.bytesUsed+size > target && c.store.Len() > 0 {
			c.store.RemoveOldest()
		}
	}

	c.store.Add(key, newEntry)
	c.bytesUsed += size
}

// Delete removes key, a no-op if it isn't present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Remove(key)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Purge()
	c.bytesUsed = 0
}

// Stats returns a snapshot of occupancy and hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		BytesUsed:  c.bytesUsed,
		EntryCount: c.store.Len(),
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// Sweep forces an immediate expiry sweep and, if usage exceeds the memory
// pressure threshold, an LRU reclaim pass. It's exposed directly so the
// POST /api/cache/clean endpoint (spec.md §6) can trigger it synchronously.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
}

func (c *Cache) sweepLocked() {
	now := time.Now()
	for _, key := range c.store.Keys() {
		e, ok := c.store.Peek(key)
		if ok && now.After(e.expiresAt) {
			c.store.Remove(key)
		}
	}

	if c.maxBytes > 0 && float64(c.bytesUsed) > float64(c.maxBytes)*sweepPressureRatio {
		n := int(float64(c.store.Len()) * sweepEvictFraction)
		if n < 1 {
			n = 1
		}
		for i := 0; i < n && c.store.Len() > 0; i++ {
			c.store.RemoveOldest()
		}
	}
}

func (c *Cache) isExpired(e *entry) bool {
	return !time.Now().Before(e.expiresAt)
}

func (c *Cache) sweepLoop(period time.Duration) {
	defer close(c.sweepDone)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.sweepLocked()
			c.mu.Unlock()
			if c.logger != nil {
				stats := c.Stats()
				c.logger.Debug("Cache sweep completed",
					zap.Int64("bytesUsed", stats.BytesUsed),
					zap.Int("entryCount", stats.EntryCount))
			}
		case <-c.sweepStop:
			return
		}
	}
}

// Close stops the background sweep goroutine. Idempotent.
func (c *Cache) Close() error {
	select {
	case <-c.sweepStop:
		// Already closed.
	default:
		close(c.sweepStop)
		<-c.sweepDone
	}
	return nil
}
