package cache

// ExpiryPath tells an Observer which mechanism removed an expired entry.
type ExpiryPath string

const (
	// ExpiredByTimer means the entry's own timer fired.
	ExpiredByTimer ExpiryPath = "timer"
	// ExpiredOnRead means a read found the deadline passed before the timer fired.
	ExpiredOnRead ExpiryPath = "read"
)

// Observer receives cache lifecycle events.
//
// Methods are called with the cache lock held and must not call back
// into the cache.
type Observer interface {
	// Hit is called when a read returns a live value.
	Hit()

	// Miss is called when a read finds nothing, or finds an expired entry.
	Miss()

	// Expired is called when an entry is removed because its TTL elapsed.
	Expired(path ExpiryPath)

	// Entries reports the structural entry count after every change.
	Entries(n int)
}

// NoopObserver discards every event. New uses it when Config.Observer is nil
// so the cache never has to nil-check.
type NoopObserver struct{}

// Hit does nothing.
func (NoopObserver) Hit() {}

// Miss does nothing.
func (NoopObserver) Miss() {}

// Expired does nothing.
func (NoopObserver) Expired(ExpiryPath) {}

// Entries does nothing.
func (NoopObserver) Entries(int) {}
