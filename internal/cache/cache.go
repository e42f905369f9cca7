package cache

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// NoExpiration stores an entry that is never deleted by time. It is the only
// TTL with that meaning; every other non-positive TTL is already due.
const NoExpiration time.Duration = math.MinInt64

// Config controls cache identity and instrumentation.
//
// Zero value is usable:
//   - Logger == nil means zap.NewNop()
//   - Observer == nil means NoopObserver{}
type Config struct {
	// Name labels log lines and metrics for this instance.
	Name     string
	Logger   *zap.Logger
	Observer Observer
}

// Stats is a point-in-time snapshot of a cache.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Cache is a concurrency-safe in-memory key–value cache with per-entry TTL.
//
// A key present in the map is not necessarily live: its deadline may have
// passed while its timer has not fired yet. Every read path checks the
// deadline itself and treats such entries as gone.
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	items  map[K]*entry[V]
	hits   uint64
	misses uint64

	// gen stamps each Put so a timer can tell its own entry from a successor.
	gen uint64

	name     string
	logger   *zap.Logger
	observer Observer

	// loads collapses concurrent GetOrLoad calls for one key; flights maps
	// each key with a caller in GetOrLoad to its singleflight name.
	loads     singleflight.Group
	flights   map[K]*flight
	flightSeq uint64
}

// entry is the value stored per key.
//
// hasExpiry=false means "never expires"; timer is nil in that case.
type entry[V any] struct {
	value     V
	expiresAt time.Time
	hasExpiry bool
	timer     *time.Timer
	gen       uint64
}

// liveAt reports whether e is still valid at t. The deadline itself is live.
func (e *entry[V]) liveAt(t time.Time) bool {
	return !e.hasExpiry || !t.After(e.expiresAt)
}

// stop disarms the entry's timer. Stopping an already fired timer is a no-op.
func (e *entry[V]) stop() {
	if e.timer != nil {
		e.timer.Stop()
	}
}

// now is a small indirection to allow test stubbing.
var now = time.Now

// New constructs an empty cache.
//
// New never returns a nil Cache.
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.Name != "" {
		logger = logger.With(zap.String("cache", cfg.Name))
	}

	return &Cache[K, V]{
		items:    make(map[K]*entry[V]),
		flights:  make(map[K]*flight),
		name:     cfg.Name,
		logger:   logger,
		observer: observer,
	}
}

// Name returns the name the cache was configured with.
func (c *Cache[K, V]) Name() string {
	return c.name
}

// Put writes/overwrites a key.
//
// ttl semantics:
//   - ttl == NoExpiration stores an entry that never expires
//   - any other ttl arms a timer that deletes the key once ttl has elapsed;
//     ttl <= 0 fires at once and a read after the deadline misses
//
// Overwriting stops the previous entry's timer before the new one is armed.
// Put never fails; a key whose dynamic value is not comparable is dropped.
func (c *Cache[K, V]) Put(key K, value V, ttl time.Duration) {
	if !hashable(key) {
		c.logger.Debug("put ignored: unhashable key", zap.Any("key", key))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[key]; ok {
		old.stop()
	}

	c.gen++
	e := &entry[V]{value: value, gen: c.gen}
	if ttl != NoExpiration {
		e.hasExpiry = true
		e.expiresAt = now().Add(ttl)
		e.timer = c.schedule(key, e.gen, ttl)
	}

	c.items[key] = e
	c.observer.Entries(len(c.items))
}

// PutMillis is Put with the TTL given in milliseconds.
//
// NaN, ±Inf and values too large for a time.Duration degrade to
// NoExpiration instead of failing. Finite values of zero or below expire
// right away.
func (c *Cache[K, V]) PutMillis(key K, value V, ttlMillis float64) {
	c.Put(key, value, millisToTTL(ttlMillis))
}

func millisToTTL(ms float64) time.Duration {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return NoExpiration
	}
	ns := ms * float64(time.Millisecond)
	if ns >= math.MaxInt64 || ns <= math.MinInt64 {
		return NoExpiration
	}
	return time.Duration(ns)
}

// Get reads a key.
//
// It performs lazy TTL expiration: a key whose deadline has passed is removed
// on access, and its timer stopped, even if the timer has not fired yet.
// Absent, expired and unhashable keys all count as a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !hashable(key) {
		var zero V
		c.missLocked()
		return zero, false
	}
	return c.getLocked(key, now())
}

func (c *Cache[K, V]) getLocked(key K, t time.Time) (V, bool) {
	var zero V

	e, ok := c.items[key]
	if !ok {
		c.missLocked()
		return zero, false
	}

	if e.liveAt(t) {
		c.hits++
		c.observer.Hit()
		return e.value, true
	}

	c.missLocked()
	c.deleteLocked(key)
	c.observer.Expired(ExpiredOnRead)
	c.logger.Debug("entry expired", zap.Any("key", key), zap.String("path", string(ExpiredOnRead)))
	return zero, false
}

func (c *Cache[K, V]) missLocked() {
	c.misses++
	c.observer.Miss()
}

// Delete removes a key if present. Deleting an absent key is a no-op.
func (c *Cache[K, V]) Delete(key K) {
	if !hashable(key) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleteLocked(key)
}

func (c *Cache[K, V]) deleteLocked(key K) {
	e, ok := c.items[key]
	if !ok {
		return
	}
	e.stop()
	delete(c.items, key)
	c.observer.Entries(len(c.items))
}

// Clear stops every timer and removes every entry. Hit and miss counters
// are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.items {
		e.stop()
	}
	c.items = make(map[K]*entry[V])
	c.observer.Entries(0)
}

// Size returns the number of live keys by running the Get contract over
// every stored key.
//
// Size is not a pure query: each live key counts as a hit, and each expired
// key counts as a miss and is removed. Use Len for a count without side
// effects.
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := now()
	n := 0
	for key := range c.items {
		if _, ok := c.getLocked(key, t); ok {
			n++
		}
	}
	return n
}

// Len returns the number of live keys without touching counters or
// removing anything.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := now()
	n := 0
	for _, e := range c.items {
		if e.liveAt(t) {
			n++
		}
	}
	return n
}

// MemSize returns the number of stored entries, including ones whose
// deadline has passed but that no timer or read has collected yet.
func (c *Cache[K, V]) MemSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Hits returns the number of reads that found a live value since New.
func (c *Cache[K, V]) Hits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

// Misses returns the number of reads that found nothing or an expired value
// since New.
func (c *Cache[K, V]) Misses() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}

// Stats returns hits, misses and the structural entry count in one snapshot.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.items)}
}

// Keys returns the stored keys in no particular order, expired ones included.
//
// This is a debug helper used by the demo.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]K, 0, len(c.items))
	for key := range c.items {
		out = append(out, key)
	}
	return out
}
