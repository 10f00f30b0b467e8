package mapposter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric label values for render outcomes.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics collects pool and pipeline instrumentation. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	lockWait       *prometheus.HistogramVec
	styleSlots     prometheus.Gauge
	poolLookups    *prometheus.CounterVec
	tileCache      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which suits tests reading values directly.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapposter_renders_total",
				Help: "Total number of poster renders by strategy, format and outcome.",
			},
			[]string{"strategy", "format", "outcome"},
		),
		renderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mapposter_render_duration_seconds",
				Help:    "Duration of a complete poster render, in seconds.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"strategy", "format"},
		),
		lockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mapposter_lock_wait_seconds",
				Help:    "Time spent waiting for a style's engine map, in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"style"},
		),
		styleSlots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mapposter_style_slots",
				Help: "Number of loaded style slots in the pool.",
			},
		),
		poolLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapposter_pool_lookups_total",
				Help: "Style slot lookups by result (hit or miss).",
			},
			[]string{"result"},
		),
		tileCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapposter_tile_cache_total",
				Help: "Tile cache lookups by result (hit or miss).",
			},
			[]string{"result"},
		),
	}

	// Pre-initialize so the series appear with value 0.
	for _, r := range []string{"hit", "miss"} {
		m.poolLookups.WithLabelValues(r)
		m.tileCache.WithLabelValues(r)
	}

	if reg != nil {
		reg.MustRegister(m.rendersTotal, m.renderDuration, m.lockWait, m.styleSlots, m.poolLookups, m.tileCache)
	}
	return m
}

func (m *Metrics) observeRender(strategy Strategy, format Format, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	m.rendersTotal.WithLabelValues(strategy.String(), string(format), outcome).Inc()
	m.renderDuration.WithLabelValues(strategy.String(), string(format)).Observe(d.Seconds())
}

func (m *Metrics) observeLockWait(style string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(style).Observe(d.Seconds())
}

func (m *Metrics) setSlots(n int) {
	if m == nil {
		return
	}
	m.styleSlots.Set(float64(n))
}

func (m *Metrics) observeLookup(hit bool) {
	if m == nil {
		return
	}
	m.poolLookups.WithLabelValues(hitLabel(hit)).Inc()
}

// ObserveTileCache records one tile cache lookup. It matches the
// mosaic.Fetcher OnCache hook.
func (m *Metrics) ObserveTileCache(hit bool) {
	if m == nil {
		return
	}
	m.tileCache.WithLabelValues(hitLabel(hit)).Inc()
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
