package taxonomy

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives resolver observations.
type MetricsRecorder interface {
	ObserveLookup(outcome string)
	ObserveScan(kind ScanKind)
	ObservePopulation(lines int, duration time.Duration, err error)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

func (NopRecorder) ObserveLookup(string) {}

func (NopRecorder) ObserveScan(ScanKind) {}

func (NopRecorder) ObservePopulation(int, time.Duration, error) {}

// PrometheusRecorder exports resolver metrics through client_golang.
type PrometheusRecorder struct {
	lookups    *prometheus.CounterVec
	scans      *prometheus.CounterVec
	population *prometheus.HistogramVec
	lines      prometheus.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxoncore",
			Name:      "lookups_total",
			Help:      "Taxid lookups by outcome.",
		}, []string{"outcome"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taxoncore",
			Name:      "dump_scans_total",
			Help:      "Dump passes started, by kind.",
		}, []string{"kind"}),
		population: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taxoncore",
			Name:      "cache_population_seconds",
			Help:      "Wall-clock time of full cache population passes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"status"}),
		lines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taxoncore",
			Name:      "cache_population_lines",
			Help:      "Lines read by the most recent cache population pass.",
		}),
	}
	for _, c := range []prometheus.Collector{r.lookups, r.scans, r.population, r.lines} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register taxonomy metrics: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveLookup(outcome string) {
	r.lookups.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRecorder) ObserveScan(kind ScanKind) {
	r.scans.WithLabelValues(string(kind)).Inc()
}

func (r *PrometheusRecorder) ObservePopulation(lines int, duration time.Duration, err error) {
	r.population.WithLabelValues(statusLabel(err)).Observe(duration.Seconds())
	r.lines.Set(float64(lines))
}

// Recorders fans every observation out to each recorder in order.
type Recorders []MetricsRecorder

func (rs Recorders) ObserveLookup(outcome string) {
	for _, r := range rs {
		r.ObserveLookup(outcome)
	}
}

func (rs Recorders) ObserveScan(kind ScanKind) {
	for _, r := range rs {
		r.ObserveScan(kind)
	}
}

func (rs Recorders) ObservePopulation(lines int, duration time.Duration, err error) {
	for _, r := range rs {
		r.ObservePopulation(lines, duration, err)
	}
}

var expvarSeq uint64

// ExpvarRecorder publishes aggregate counters via expvar for deployments
// without a Prometheus scraper.
type ExpvarRecorder struct {
	name        string
	mu          sync.Mutex
	lookups     map[string]int64
	scans       map[ScanKind]int64
	populations map[string]int64
	populateMS  float64
}

// ExpvarSnapshot is a read-only copy of the recorded counters.
type ExpvarSnapshot struct {
	Lookups      map[string]int64   `json:"lookups_total"`
	Scans        map[ScanKind]int64 `json:"dump_scans_total"`
	Populations  map[string]int64   `json:"populations_total"`
	PopulationMS float64            `json:"population_ms_total"`
	RecordedAt   time.Time          `json:"recorded_at"`
}

// NewExpvarRecorder publishes a recorder under name. An empty name gets a
// unique generated one.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("taxoncore_resolver_%d", id)
	}
	rec := &ExpvarRecorder{
		name:        name,
		lookups:     make(map[string]int64),
		scans:       make(map[ScanKind]int64),
		populations: make(map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarRecorder) Name() string { return r.name }

// Snapshot copies the current counters.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := ExpvarSnapshot{
		Lookups:      make(map[string]int64, len(r.lookups)),
		Scans:        make(map[ScanKind]int64, len(r.scans)),
		Populations:  make(map[string]int64, len(r.populations)),
		PopulationMS: r.populateMS,
		RecordedAt:   time.Now().UTC(),
	}
	for k, v := range r.lookups {
		snap.Lookups[k] = v
	}
	for k, v := range r.scans {
		snap.Scans[k] = v
	}
	for k, v := range r.populations {
		snap.Populations[k] = v
	}
	return snap
}

func (r *ExpvarRecorder) ObserveLookup(outcome string) {
	r.mu.Lock()
	r.lookups[outcome]++
	r.mu.Unlock()
}

func (r *ExpvarRecorder) ObserveScan(kind ScanKind) {
	r.mu.Lock()
	r.scans[kind]++
	r.mu.Unlock()
}

func (r *ExpvarRecorder) ObservePopulation(_ int, duration time.Duration, err error) {
	r.mu.Lock()
	r.populations[statusLabel(err)]++
	r.populateMS += float64(duration) / float64(time.Millisecond)
	r.mu.Unlock()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
