package cache

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keySeq atomic.Int64

// newKey hands out keys that are unique across the whole test binary, so the
// suite can run against Shared without tests stepping on each other.
func newKey() string {
	return "key_" + strconv.FormatInt(keySeq.Add(1), 10)
}

// stubClock freezes the package clock at base and returns a pointer the test
// can move forward. Timers still run on the real clock.
func stubClock(t *testing.T, base time.Time) *time.Time {
	t.Helper()
	cur := base
	now = func() time.Time { return cur }
	t.Cleanup(func() { now = time.Now })
	return &cur
}

// runSuite checks the public contract against any instance, fresh or shared.
func runSuite(t *testing.T, c *Cache[any, any]) {
	t.Run("SizeEmpty", func(t *testing.T) {
		c.Clear()
		if n := c.Size(); n != 0 {
			t.Fatalf("expected size 0, got %d", n)
		}
	})

	t.Run("SizeCountsInsertedKeys", func(t *testing.T) {
		c.Clear()
		for i := 0; i < 5; i++ {
			c.Put(newKey(), i, time.Minute)
		}
		if n := c.Size(); n != 5 {
			t.Fatalf("expected size 5, got %d", n)
		}
	})

	t.Run("SizeAfterEntryFallsOut", func(t *testing.T) {
		start := c.Size()
		c.Put(newKey(), 1, 2*time.Millisecond)
		require.Equal(t, start+1, c.Size())

		time.Sleep(4 * time.Millisecond)
		require.Equal(t, start, c.Size())
	})

	t.Run("ClearRemovesEverything", func(t *testing.T) {
		start := c.Size()
		keys := []string{newKey(), newKey(), newKey()}
		for i, k := range keys {
			c.Put(k, i, time.Minute)
		}
		require.Equal(t, start+3, c.Size())

		c.Clear()
		require.Equal(t, 0, c.Size())
		for _, k := range keys {
			_, ok := c.Get(k)
			assert.False(t, ok, "expected %s to be cleared", k)
		}
	})

	t.Run("GetMissingKeys", func(t *testing.T) {
		for _, k := range []any{"awf1n1a", nil, 1, true, false, []int{1}} {
			v, ok := c.Get(k)
			assert.False(t, ok, "key %#v", k)
			assert.Nil(t, v, "key %#v", k)
		}
	})

	t.Run("GetReturnsStoredValue", func(t *testing.T) {
		complicated := []any{"a", map[string]any{"b": "c", "d": []any{"e", 3}}, "@"}
		key := newKey()
		c.Put(key, complicated, 100*time.Millisecond)

		v, ok := c.Get(key)
		require.True(t, ok)
		require.Equal(t, complicated, v)
	})

	t.Run("OverwriteKeepsNewValuePastOldDeadline", func(t *testing.T) {
		key := newKey()
		c.Put(key, map[string]int{"a": 1}, 200*time.Millisecond)

		time.Sleep(100 * time.Millisecond)
		c.Put(key, map[string]int{"a": 2}, 200*time.Millisecond)
		v, ok := c.Get(key)
		require.True(t, ok)
		require.Equal(t, map[string]int{"a": 2}, v)

		// The first Put's deadline has passed; its timer must not take the
		// second value with it.
		time.Sleep(150 * time.Millisecond)
		v, ok = c.Get(key)
		require.True(t, ok, "expected overwritten value to survive the old TTL")
		require.Equal(t, map[string]int{"a": 2}, v)
	})

	t.Run("ExistsDuringTTL", func(t *testing.T) {
		key := newKey()
		c.Put(key, map[string]int{"a": 1}, 40*time.Millisecond)
		time.Sleep(10 * time.Millisecond)

		v, ok := c.Get(key)
		require.True(t, ok)
		require.Equal(t, map[string]int{"a": 1}, v)
	})

	t.Run("ExpiresAfterTTL", func(t *testing.T) {
		key := newKey()
		c.Put(key, map[string]int{"a": 1}, 20*time.Millisecond)
		time.Sleep(30 * time.Millisecond)

		_, ok := c.Get(key)
		require.False(t, ok)
	})

	t.Run("Hits", func(t *testing.T) {
		key := newKey()
		c.Put(key, 1, time.Minute)
		start := c.Hits()

		c.Get("missing")
		c.Get(key)
		c.Get(key)
		c.Get(key)
		require.Equal(t, start+3, c.Hits())
	})

	t.Run("Misses", func(t *testing.T) {
		key := newKey()
		c.Put(key, 1, time.Minute)
		start := c.Misses()

		c.Get("missing")
		c.Get("missing")
		c.Get(key)
		require.Equal(t, start+2, c.Misses())
	})
}

func TestSuite_Instance(t *testing.T) {
	runSuite(t, New[any, any](Config{}))
}

func TestSuite_Shared(t *testing.T) {
	runSuite(t, Shared())
}

func TestTimerDeletesWithoutRead(t *testing.T) {
	c := New[string, int](Config{})
	c.Put("k", 1, 5*time.Millisecond)

	// MemSize has no lazy path, so only the timer can bring it to zero.
	require.Eventually(t, func() bool { return c.MemSize() == 0 }, time.Second, time.Millisecond)
	require.Equal(t, uint64(0), c.Misses())
}

func TestLazyExpiryBeatsTimer(t *testing.T) {
	clock := stubClock(t, time.Now())
	c := New[string, string](Config{})

	// The real timer is an hour out; only the stubbed clock moves.
	c.Put("k", "v", time.Hour)
	*clock = clock.Add(2 * time.Hour)

	require.Equal(t, 1, c.MemSize())
	require.Equal(t, 0, c.Len())

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.MemSize())
	require.Equal(t, uint64(1), c.Misses())
	require.Equal(t, uint64(0), c.Hits())
}

func TestDeadlineIsInclusive(t *testing.T) {
	base := time.Now()
	clock := stubClock(t, base)
	c := New[string, int](Config{})

	c.Put("k", 7, time.Hour)

	*clock = base.Add(time.Hour)
	v, ok := c.Get("k")
	require.True(t, ok, "an entry is live at exactly its deadline")
	require.Equal(t, 7, v)

	*clock = base.Add(time.Hour + time.Nanosecond)
	_, ok = c.Get("k")
	require.False(t, ok)
}

func TestSize_MutatesCountersAndEntries(t *testing.T) {
	base := time.Now()
	clock := stubClock(t, base)
	c := New[string, int](Config{})

	c.Put("short", 1, time.Minute)
	c.Put("long-a", 2, time.Hour)
	c.Put("long-b", 3, NoExpiration)
	*clock = base.Add(2 * time.Minute)

	require.Equal(t, 3, c.MemSize())
	require.Equal(t, 2, c.Len())
	require.Equal(t, uint64(0), c.Hits(), "Len must not count hits")

	require.Equal(t, 2, c.Size())
	require.Equal(t, uint64(2), c.Hits())
	require.Equal(t, uint64(1), c.Misses())
	require.Equal(t, 2, c.MemSize(), "Size collects the expired entry")
}

func TestClear_KeepsCounters(t *testing.T) {
	c := New[string, int](Config{})
	c.Put("a", 1, time.Minute)
	c.Get("a")
	c.Get("b")

	c.Clear()

	s := c.Stats()
	require.Equal(t, Stats{Hits: 1, Misses: 1, Entries: 0}, s)
}

func TestStaleTimerCallbackIsNoop(t *testing.T) {
	c := New[string, string](Config{})
	c.Put("k", "old", time.Hour)
	c.mu.Lock()
	oldGen := c.items["k"].gen
	c.mu.Unlock()

	c.Put("k", "new", time.Hour)

	// Simulate the old timer firing after Stop lost the race.
	c.expire("k", oldGen)
	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "new", v)

	// Firing for a key that is gone is also harmless.
	c.Delete("k")
	c.expire("k", oldGen+1)
	require.Equal(t, 0, c.MemSize())
}

func TestNoExpiration(t *testing.T) {
	clock := stubClock(t, time.Now())
	c := New[string, int](Config{})

	c.Put("forever", 1, NoExpiration)
	*clock = clock.Add(24 * 365 * time.Hour)

	v, ok := c.Get("forever")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestNonPositiveTTLExpiresAtOnce(t *testing.T) {
	c := New[string, int](Config{})

	c.Put("zero", 1, 0)
	c.Put("negative", 2, -time.Second)
	c.PutMillis("zero-ms", 3, 0)
	c.PutMillis("negative-ms", 4, -5)

	require.Eventually(t, func() bool { return c.MemSize() == 0 }, time.Second, time.Millisecond)
	for _, k := range []string{"zero", "negative", "zero-ms", "negative-ms"} {
		_, ok := c.Get(k)
		assert.False(t, ok, "expected %s to be gone", k)
	}
}

func TestNegativeTTLMissesBeforeTimerFires(t *testing.T) {
	clock := stubClock(t, time.Now())
	c := New[string, int](Config{})

	c.Put("k", 1, -time.Millisecond)
	_, ok := c.Get("k")
	require.False(t, ok)

	// A zero TTL is live only at the instant it was written.
	c.Put("z", 2, 0)
	*clock = clock.Add(time.Nanosecond)
	_, ok = c.Get("z")
	require.False(t, ok)
}

func TestPutMillis(t *testing.T) {
	base := time.Now()
	clock := stubClock(t, base)
	c := New[string, int](Config{})

	c.PutMillis("nan", 1, math.NaN())
	c.PutMillis("inf", 2, math.Inf(1))
	c.PutMillis("huge", 3, math.MaxFloat64)
	c.PutMillis("short", 4, 50)

	*clock = base.Add(time.Second)
	for _, k := range []string{"nan", "inf", "huge"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "expected %s to never expire", k)
	}
	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestMillisToTTL(t *testing.T) {
	tests := []struct {
		in   float64
		want time.Duration
	}{
		{in: 10, want: 10 * time.Millisecond},
		{in: 0.5, want: 500 * time.Microsecond},
		{in: 0, want: 0},
		{in: -5, want: -5 * time.Millisecond},
		{in: math.NaN(), want: NoExpiration},
		{in: math.Inf(-1), want: NoExpiration},
		{in: 1e300, want: NoExpiration},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, millisToTTL(tt.in))
		})
	}
}

func TestDelete(t *testing.T) {
	c := New[any, any](Config{})
	c.Put("a", 1, time.Minute)

	c.Delete("a")
	c.Delete("a")
	c.Delete("never-inserted")
	c.Delete([]string{"unhashable"})

	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.MemSize())
}

func TestKeysOfDifferentTypesAreDistinct(t *testing.T) {
	c := New[any, any](Config{})
	c.Put("1", "string", time.Minute)
	c.Put(1, "int", time.Minute)
	c.Put(true, "bool", time.Minute)

	v, _ := c.Get("1")
	assert.Equal(t, "string", v)
	v, _ = c.Get(1)
	assert.Equal(t, "int", v)
	v, _ = c.Get(true)
	assert.Equal(t, "bool", v)
	assert.ElementsMatch(t, []any{"1", 1, true}, c.Keys())
}

func TestUnhashableKeyIsIgnored(t *testing.T) {
	c := New[any, any](Config{})

	require.NotPanics(t, func() {
		c.Put(map[string]int{"a": 1}, "v", time.Minute)
	})
	require.Equal(t, 0, c.MemSize())

	_, ok := c.Get(map[string]int{"a": 1})
	require.False(t, ok)
	require.Equal(t, uint64(1), c.Misses())
}

type recordingObserver struct {
	mu      sync.Mutex
	hits    int
	misses  int
	expired map[ExpiryPath]int
	entries int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{expired: make(map[ExpiryPath]int)}
}

func (o *recordingObserver) Hit()  { o.mu.Lock(); o.hits++; o.mu.Unlock() }
func (o *recordingObserver) Miss() { o.mu.Lock(); o.misses++; o.mu.Unlock() }
func (o *recordingObserver) Expired(p ExpiryPath) {
	o.mu.Lock()
	o.expired[p]++
	o.mu.Unlock()
}
func (o *recordingObserver) Entries(n int) { o.mu.Lock(); o.entries = n; o.mu.Unlock() }

func (o *recordingObserver) snapshot() (hits, misses, timer, read, entries int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits, o.misses, o.expired[ExpiredByTimer], o.expired[ExpiredOnRead], o.entries
}

func TestObserverReceivesEvents(t *testing.T) {
	obs := newRecordingObserver()
	c := New[string, int](Config{Name: "observed", Observer: obs})

	c.Put("a", 1, time.Minute)
	c.Put("b", 2, time.Minute)
	c.Get("a")
	c.Get("zzz")
	c.Put("t", 3, 2*time.Millisecond)

	require.Eventually(t, func() bool {
		_, _, timer, _, _ := obs.snapshot()
		return timer == 1
	}, time.Second, time.Millisecond)

	hits, misses, timer, read, entries := obs.snapshot()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, timer)
	assert.Equal(t, 0, read)
	assert.Equal(t, 2, entries)
	assert.Equal(t, "observed", c.Name())
}

func TestConcurrentAccess(t *testing.T) {
	const workers = 32
	const rounds = 200
	c := New[int, int](Config{})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				key := (w*rounds + i) % 64
				c.Put(key, i, time.Duration(i%3)*time.Millisecond)
				c.Get(key)
				if i%10 == 0 {
					c.Delete(key)
				}
				if i%50 == 0 {
					c.Size()
				}
			}
		}(w)
	}
	wg.Wait()

	// Size also counts, so every Get must be reflected at least once.
	s := c.Stats()
	require.GreaterOrEqual(t, s.Hits+s.Misses, uint64(workers*rounds))
	require.LessOrEqual(t, c.Len(), 64)
}
