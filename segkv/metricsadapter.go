package segkv

// statsSourceAdapter adapts Stats (a plain field struct, since callers read its
// fields directly) into the method-shaped segkv/metrics.StatsSource, without
// segkv/metrics importing this package.
type statsSourceAdapter struct {
	stats Stats
}

// AsMetricsSource wraps a Stats snapshot for segkv/metrics.Exporter.Refresh.
func AsMetricsSource(stats Stats) interface {
	Hits() int64
	Misses() int64
	Evictions() int64
	Size() int
} {
	return statsSourceAdapter{stats: stats}
}

func (a statsSourceAdapter) Hits() int64      { return a.stats.Hits }
func (a statsSourceAdapter) Misses() int64    { return a.stats.Misses }
func (a statsSourceAdapter) Evictions() int64 { return a.stats.Evictions }
func (a statsSourceAdapter) Size() int        { return a.stats.Size }
