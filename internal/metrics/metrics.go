package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ttlcache/internal/cache"
)

var (
	registerOnce sync.Once

	hitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ttlcache",
		Name:      "hits_total",
		Help:      "Total number of reads that returned a live value, by cache",
	}, []string{"cache"})
	missesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ttlcache",
		Name:      "misses_total",
		Help:      "Total number of reads that found no value or an expired one, by cache",
	}, []string{"cache"})
	expirationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ttlcache",
		Name:      "expirations_total",
		Help:      "Total number of entries removed because their TTL elapsed, by cache and path (timer or read)",
	}, []string{"cache", "path"})
	entriesGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ttlcache",
		Name:      "entries",
		Help:      "Entries currently stored, expired-but-uncollected included, by cache",
	}, []string{"cache"})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(hitsTotal, missesTotal, expirationsTotal, entriesGauge)
	})
}

// Observer feeds cache events for one named cache into the collectors above.
type Observer struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	timer   prometheus.Counter
	read    prometheus.Counter
	entries prometheus.Gauge
}

// NewObserver binds the label values for name once, so the hot path does
// no label lookups.
func NewObserver(name string) *Observer {
	return &Observer{
		hits:    hitsTotal.WithLabelValues(name),
		misses:  missesTotal.WithLabelValues(name),
		timer:   expirationsTotal.WithLabelValues(name, string(cache.ExpiredByTimer)),
		read:    expirationsTotal.WithLabelValues(name, string(cache.ExpiredOnRead)),
		entries: entriesGauge.WithLabelValues(name),
	}
}

// Hit increments ttlcache_hits_total.
func (o *Observer) Hit() { o.hits.Inc() }

// Miss increments ttlcache_misses_total.
func (o *Observer) Miss() { o.misses.Inc() }

// Expired increments ttlcache_expirations_total for the removal path.
func (o *Observer) Expired(path cache.ExpiryPath) {
	if path == cache.ExpiredByTimer {
		o.timer.Inc()
		return
	}
	o.read.Inc()
}

// Entries sets the ttlcache_entries gauge.
func (o *Observer) Entries(n int) { o.entries.Set(float64(n)) }

var _ cache.Observer = (*Observer)(nil)
