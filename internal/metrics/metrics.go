// Package metrics provides lightweight operational counters for rolltrackd.
//
// Features:
//   - Counters for ingestion volume and error classes
//   - Gauges for live state (open jobs, websocket clients)
//   - JSON snapshot served over the HTTP surface
//   - Thread-safe operations
package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Uint64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds the given value to the counter.
func (c *Counter) Add(v uint64) {
	c.value.Add(v)
}

// Value returns the current value.
func (c *Counter) Value() uint64 {
	return c.value.Load()
}

// Name returns the metric name.
func (c *Counter) Name() string {
	return c.name
}

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(v int64) {
	g.value.Store(v)
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.value.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.value.Add(-1)
}

// Value returns the current value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

// Name returns the metric name.
func (g *Gauge) Name() string {
	return g.name
}

// Registry holds a set of metrics for export.
type Registry struct {
	mu       sync.RWMutex
	counters []*Counter
	gauges   []*Gauge
	started  time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{started: time.Now()}
}

// NewCounter creates and registers a counter.
func (r *Registry) NewCounter(name, help string) *Counter {
	c := &Counter{name: name, help: help}
	r.mu.Lock()
	r.counters = append(r.counters, c)
	r.mu.Unlock()
	return c
}

// NewGauge creates and registers a gauge.
func (r *Registry) NewGauge(name, help string) *Gauge {
	g := &Gauge{name: name, help: help}
	r.mu.Lock()
	r.gauges = append(r.gauges, g)
	r.mu.Unlock()
	return g
}

// Snapshot returns all metric values keyed by name, plus uptime in seconds.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]int64, len(r.counters)+len(r.gauges)+1)
	for _, c := range r.counters {
		snap[c.name] = int64(c.Value())
	}
	for _, g := range r.gauges {
		snap[g.name] = g.Value()
	}
	snap["uptime_seconds"] = int64(time.Since(r.started).Seconds())
	return snap
}

// Names returns the registered metric names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.counters)+len(r.gauges))
	for _, c := range r.counters {
		names = append(names, c.name)
	}
	for _, g := range r.gauges {
		names = append(names, g.name)
	}
	sort.Strings(names)
	return names
}

// Handler serves the registry snapshot as JSON.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(r.Snapshot())
	})
}

// Default is the process-wide registry.
var Default = NewRegistry()

// Process-wide metrics for the ingestion pipeline and state machines.
var (
	RowsIngested          = Default.NewCounter("rows_ingested_total", "Log rows consumed across all watched files")
	ParseSkips            = Default.NewCounter("parse_skips_total", "Rows consumed without a countable outcome")
	TransientReadFailures = Default.NewCounter("transient_read_failures_total", "File reads that failed and will be retried")
	ShrinkAnomalies       = Default.NewCounter("shrink_anomalies_total", "Watched files observed with fewer rows than consumed")
	SnapshotsEmitted      = Default.NewCounter("snapshots_emitted_total", "Counter snapshots emitted to consumers")
	StoreWriteFailures    = Default.NewCounter("store_write_failures_total", "Durable store writes that failed")
	OpenJobs              = Default.NewGauge("open_jobs", "Job coordinators currently held in memory")
	WebsocketClients      = Default.NewGauge("websocket_clients", "Connected websocket subscribers")
)
