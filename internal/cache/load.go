package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrUnhashableKey is returned by GetOrLoad for a key that cannot index a map.
var ErrUnhashableKey = errors.New("cache: unhashable key")

// LoadFunc produces the value for a key that missed.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// GetOrLoad returns the live value for key, or calls load on a miss and
// stores its result under ttl.
//
// Concurrent misses on the same key share one load call; the others wait
// for its result. A failed load stores nothing. The Get that precedes the
// load is counted like any other Get.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, ttl time.Duration, load LoadFunc[V]) (V, error) {
	var zero V

	if !hashable(key) {
		return zero, ErrUnhashableKey
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	id, done := c.joinFlight(key)
	defer done()

	res, err, dup := c.loads.Do(id, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v, ttl)
		return v, nil
	})
	if err != nil {
		c.logger.Debug("load failed", zap.Any("key", key), zap.Error(err))
		return zero, fmt.Errorf("load %v: %w", key, err)
	}
	if dup {
		c.logger.Debug("load shared", zap.Any("key", key))
	}
	// a nil interface result asserts to the zero V
	v, _ := res.(V)
	return v, nil
}

// joinFlight returns the singleflight name for key. Callers for the same
// key get the same name while any of them is still loading; distinct keys
// never share one, however they print. done must be called once Do returns.
func (c *Cache[K, V]) joinFlight(key K) (string, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		c.flightSeq++
		f = &flight{id: strconv.FormatUint(c.flightSeq, 10)}
		c.flights[key] = f
	}
	f.refs++

	return f.id, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if f.refs--; f.refs == 0 {
			delete(c.flights, key)
		}
	}
}

// flight names the singleflight call for one key.
type flight struct {
	id   string
	refs int
}
