// Package metrics bridges Container.Stats() snapshots to Prometheus gauges and
// counters. Optional: nothing in segkv/container.go imports this package, keeping
// metrics export an opt-in collaborator a deployment wires in, consistent with
// spec.md's Non-goals treating observability as an outer concern.
package metrics

import (
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/segmentedcache/segkv/cachelog"
)

// StatsSource is whatever the caller's container exposes for a snapshot; kept as
// an interface (rather than importing segkv.Stats directly) so this package has
// no dependency on the root package's Container type, only on the shape of a
// snapshot it can read.
type StatsSource interface {
	Hits() int64
	Misses() int64
	Evictions() int64
	Size() int
}

// Exporter registers a set of container-wide gauges. Grounded on the retrieved
// corpus's Prometheus client usage pattern (register once at construction, update
// via an explicit Refresh call). The gauges change only when Refresh is called;
// the exporter does not refresh on its own or on scrape.
type Exporter struct {
	namespace string

	hits      prometheus.Gauge
	misses    prometheus.Gauge
	evictions prometheus.Gauge
	size      prometheus.Gauge
	hitRatio  prometheus.Gauge
}

// NewExporter builds and registers the gauges under namespace (e.g. "segkv") with
// registry. Pass prometheus.DefaultRegisterer for the global registry.
func NewExporter(namespace string, registry prometheus.Registerer) (*Exporter, error) {
	e := &Exporter{
		namespace: namespace,
		hits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hits_total", Help: "Cumulative container get hits.",
		}),
		misses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "misses_total", Help: "Cumulative container get misses.",
		}),
		evictions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "evictions_total", Help: "Cumulative size-driven evictions.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "entries", Help: "Current entry count across tracked segments.",
		}),
		hitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "hit_ratio", Help: "hits / (hits + misses) as of the last refresh.",
		}),
	}
	for _, c := range []prometheus.Collector{e.hits, e.misses, e.evictions, e.size, e.hitRatio} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Refresh pulls a fresh snapshot from src and updates every gauge.
func (e *Exporter) Refresh(src StatsSource) {
	hits, misses, evictions, size := src.Hits(), src.Misses(), src.Evictions(), src.Size()
	e.hits.Set(float64(hits))
	e.misses.Set(float64(misses))
	e.evictions.Set(float64(evictions))
	e.size.Set(float64(size))

	ratio := 0.0
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	e.hitRatio.Set(ratio)

	cachelog.Container().Debug("metrics refreshed",
		"namespace", e.namespace,
		"entries", humanize.Comma(int64(size)),
		"hit_ratio", ratio,
	)
}
