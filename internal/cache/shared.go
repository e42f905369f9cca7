package cache

import "sync"

var (
	sharedOnce  sync.Once
	sharedCache *Cache[any, any]
)

// Shared returns the process-wide default cache, building it on first use.
//
// It lives until the process exits and is never reset. Instances from New
// share no state with it.
func Shared() *Cache[any, any] {
	ConfigureShared(Config{Name: "shared"})
	return sharedCache
}

// ConfigureShared builds the shared cache from cfg if nothing has built it
// yet, and reports whether cfg was used. Call it once at startup, before any
// Shared call, to attach a logger or observer.
func ConfigureShared(cfg Config) bool {
	used := false
	sharedOnce.Do(func() {
		sharedCache = New[any, any](cfg)
		used = true
	})
	return used
}
