package cache

import (
	"time"

	"go.uber.org/zap"
)

// schedule arms the proactive half of expiration for one Put.
//
// The callback captures only the key and the Put's generation, never the
// entry. Timer.Stop cannot recall a callback that already fired and is
// waiting on c.mu, so expire re-checks the generation under the lock.
func (c *Cache[K, V]) schedule(key K, gen uint64, ttl time.Duration) *time.Timer {
	return time.AfterFunc(ttl, func() {
		c.expire(key, gen)
	})
}

// expire removes key if it still holds the entry written by Put generation gen.
// A deleted or overwritten key makes this a no-op.
func (c *Cache[K, V]) expire(key K, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok || e.gen != gen {
		return
	}

	delete(c.items, key)
	c.observer.Entries(len(c.items))
	c.observer.Expired(ExpiredByTimer)
	c.logger.Debug("entry expired", zap.Any("key", key), zap.String("path", string(ExpiredByTimer)))
}
