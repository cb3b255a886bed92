// Package segkv implements the segmented, concurrent in-memory data container
// (spec §1-2): Entry model (C1) and Container façade (C4) live here; SegmentMap
// (C2), Key partitioner (C3), Expiration hook (C5), Eviction integration (C6), and
// the Iteration engine (C7) live in the segkv/segment, segkv/partition,
// segkv/expire, and segkv/iterate subpackages, wired together by Container.
package segkv

import (
	"sync/atomic"
	"time"

	"github.com/segmentedcache/segkv/cachelog"
	"github.com/segmentedcache/segkv/cerrors"
	"github.com/segmentedcache/segkv/iterate"
	"github.com/segmentedcache/segkv/partition"
	"github.com/segmentedcache/segkv/segment"
)

// ComputeAction is the transformer passed to Container.Compute (spec §4.4):
// observes the previous entry (nil if absent) and the entry factory, returns the
// next entry (nil to remove, the same pointer for a no-op).
type ComputeAction func(key string, prev *Entry, factory EntryFactory) *Entry

// Stats is a point-in-time snapshot of hit/miss/eviction counters and segment
// size, aggregated across whatever segments were asked for (spec §13
// supplemented feature, mirroring the teacher's CacheStats/segmentStats shape).
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

type segmentStats struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Container is the façade of spec §4.4 (C4): an ordered sequence of SegmentMaps
// fixed at construction, routing every operation by segment index, coordinating
// expiration/activation/passivation/listeners around a single atomic per-key
// compute.
type Container struct {
	segments []segment.Map[*Entry]
	stats    []*segmentStats

	factory     EntryFactory
	partitioner KeyPartitioner
	clock       TimeService
	expiration  ExpirationManager
	activation  ActivationManager
	passivation PassivationManager
	eviction    EvictionManager

	listeners *listenerRegistry

	passivationEnabled bool
	maxEntries         int

	started atomic.Bool
}

// New constructs a Container with N segments fixed for its lifetime (spec §3:
// "Container: ordered sequence of SegmentMaps... N is fixed at construction").
func New(opts ...Option) *Container {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.SegmentCount < 1 {
		cfg.SegmentCount = 1
	}
	if cfg.KeyPartitioner == nil {
		kp := partition.NewKeyPartitioner(cfg.SegmentCount)
		cfg.KeyPartitioner = kp
	}

	c := &Container{
		factory:            EntryFactory{VersionEntries: cfg.VersionEntries},
		partitioner:        cfg.KeyPartitioner,
		clock:              cfg.TimeService,
		expiration:         cfg.ExpirationManager,
		activation:         cfg.ActivationManager,
		passivation:        cfg.PassivationManager,
		eviction:           cfg.EvictionManager,
		listeners:          newListenerRegistry(),
		passivationEnabled: cfg.PassivationEnabled,
		maxEntries:         cfg.MaxEntries,
	}
	c.segments = make([]segment.Map[*Entry], cfg.SegmentCount)
	c.stats = make([]*segmentStats, cfg.SegmentCount)
	for i := range c.segments {
		c.stats[i] = &segmentStats{}
		c.segments[i] = c.newSegmentMap(i)
	}
	return c
}

func (c *Container) newSegmentMap(segIdx int) segment.Map[*Entry] {
	if c.maxEntries > 0 {
		return segment.NewBounded[*Entry](c.maxEntries, func(key string, value *Entry, cause segment.RemovalCause) {
			c.handleSegmentRemoval(segIdx, key, value, cause)
		})
	}
	return segment.NewUnbounded[*Entry](func(key string, value *Entry) {
		c.handleSegmentRemoval(segIdx, key, value, segment.CauseExplicit)
	})
}

// handleSegmentRemoval is the Eviction integration bridge (C6, spec §4.6): every
// removal a segment map makes on its own (bounded eviction) or is told to make
// (explicit remove/evict/clear/compute-remove) funnels through here exactly once,
// so removal-listener delivery and the SIZE/EXPLICIT/REPLACED collaborator calls
// have one place to live instead of being duplicated at every call site.
func (c *Container) handleSegmentRemoval(segIdx int, key string, entry *Entry, cause segment.RemovalCause) {
	switch cause {
	case segment.CauseSize:
		if c.passivationEnabled {
			if err := c.passivation.Passivate(entry); err != nil {
				cachelog.Error().Error("passivation failed during size eviction", "key", key, "error", err)
			}
		}
		batch := map[string]*Entry{key: entry}
		c.eviction.OnEntryEviction(batch)
		c.listeners.Notify(batch)
		c.stats[segIdx].evictions.Add(1)
		cachelog.Eviction().Info("entry evicted for size", "segment", segIdx, "key", key)
	case segment.CauseExplicit:
		c.listeners.Notify(map[string]*Entry{key: entry})
	case segment.CauseReplaced:
		cachelog.Eviction().Debug("entry replaced in segment", "segment", segIdx, "key", key)
	}
}

func (c *Container) resolveSegment(explicit *int, key string) (int, error) {
	if explicit != nil {
		idx := *explicit
		if idx < 0 || idx >= len(c.segments) {
			return 0, cerrors.ProgrammerError("Container", "resolveSegment", "segment index out of range")
		}
		return idx, nil
	}
	return c.partitioner.SegmentFor(key), nil
}

// Get implements spec §4.4's get operation: samples now, checks local expiry,
// delegates to the expiration hook on a positive local check, touches and
// returns on success.
func (c *Container) Get(segment *int, key string) (*Entry, error) {
	idx, err := c.resolveSegment(segment, key)
	if err != nil {
		return nil, err
	}
	now := c.clock.WallClockTime()
	seg := c.segments[idx]

	var result *Entry
	seg.Touch(key, func(prev *Entry, exists bool) (*Entry, bool) {
		if !exists {
			return nil, false
		}
		if prev.CanExpire() && prev.IsExpiredAt(now) {
			if c.expiration.EntryExpiredInMemory(prev, now) {
				return nil, false
			}
		}
		touched := prev.touched(now)
		result = touched
		return touched, true
	})

	if result == nil {
		c.stats[idx].misses.Add(1)
		return nil, nil
	}
	c.stats[idx].hits.Add(1)
	return result, nil
}

// Peek returns the raw entry with no expiration check and no touch (spec §4.4).
func (c *Container) Peek(segment *int, key string) (*Entry, error) {
	idx, err := c.resolveSegment(segment, key)
	if err != nil {
		return nil, err
	}
	v, ok := c.segments[idx].Peek(key)
	if !ok {
		return nil, nil
	}
	return v, nil
}

// ContainsKey applies the same expiration semantics as Get but never touches the
// entry (spec §4.4).
func (c *Container) ContainsKey(segment *int, key string) (bool, error) {
	idx, err := c.resolveSegment(segment, key)
	if err != nil {
		return false, err
	}
	now := c.clock.WallClockTime()
	seg := c.segments[idx]

	found := false
	seg.Compute(key, func(prev *Entry, exists bool) (*Entry, bool) {
		if !exists {
			return nil, false
		}
		if prev.CanExpire() && prev.IsExpiredAt(now) {
			if c.expiration.EntryExpiredInMemory(prev, now) {
				return nil, false
			}
		}
		found = true
		return prev, true
	})
	return found, nil
}

// unwrapMeta accepts anything Put allows as its metadata argument: a plain
// Metadata, or an L1Metadata wrapper (spec §4.1/§4.4 "L1 handling").
func unwrapMeta(meta any) (inner Metadata, isL1 bool, err error) {
	switch m := meta.(type) {
	case L1Metadata:
		return m.Inner, true, nil
	case Metadata:
		return m, false, nil
	default:
		return Metadata{}, false, cerrors.ProgrammerError("Container", "Put", "metadata must be Metadata or L1Metadata")
	}
}

// Put resolves L1 wrapping, builds the next entry via update-or-create, replaces
// it atomically, and notifies the activation collaborator (spec §4.4).
func (c *Container) Put(segment *int, key string, value any, meta any) error {
	inner, isL1, err := unwrapMeta(meta)
	if err != nil {
		return err
	}
	idx, err := c.resolveSegment(segment, key)
	if err != nil {
		return err
	}
	now := c.clock.WallClockTime()
	seg := c.segments[idx]

	seg.Compute(key, func(prev *Entry, exists bool) (*Entry, bool) {
		var next *Entry
		if isL1 {
			next = c.factory.CreateL1(key, value, inner, now)
		} else {
			next = c.factory.Update(prev, value, inner, now)
		}
		next.Key = key

		wasAbsent := !exists
		c.activation.OnUpdate(key, wasAbsent)
		return next, true
	})
	return nil
}

// Remove captures the previous entry and writes absent, consulting the
// expiration hook if the previous entry looked locally expired (spec §4.4,
// scenario 6; §9 open question: a confirmed-expired previous value is discarded,
// not returned).
func (c *Container) Remove(segment *int, key string) (*Entry, error) {
	idx, err := c.resolveSegment(segment, key)
	if err != nil {
		return nil, err
	}
	now := c.clock.WallClockTime()
	seg := c.segments[idx]

	var prevOut *Entry
	seg.Compute(key, func(prev *Entry, exists bool) (*Entry, bool) {
		if !exists {
			c.activation.OnRemove(key, true)
			return nil, false
		}
		expiredConfirmed := false
		if prev.CanExpire() && prev.IsExpiredAt(now) {
			expiredConfirmed = c.expiration.EntryExpiredInMemory(prev, now)
		}
		if !expiredConfirmed {
			prevOut = prev
		}
		c.activation.OnRemove(key, false)
		return nil, false
	})
	return prevOut, nil
}

// Evict performs a policy-initiated removal: passivates (if enabled) before
// removing, rolling back (leaving the entry in place) if passivation fails (spec
// §4.4, §7 CollaboratorFailure rollback semantics).
func (c *Container) Evict(segment *int, key string) error {
	idx, err := c.resolveSegment(segment, key)
	if err != nil {
		return err
	}
	seg := c.segments[idx]

	var passivateErr error
	seg.Compute(key, func(prev *Entry, exists bool) (*Entry, bool) {
		if !exists {
			return nil, false
		}
		if c.passivationEnabled {
			if err := c.passivation.Passivate(prev); err != nil {
				passivateErr = err
				return prev, true
			}
		}
		return nil, false
	})
	if passivateErr != nil {
		return cerrors.CollaboratorFailure("Container", "Evict", passivateErr)
	}
	return nil
}

// Compute runs action against the current entry for key under the segment's
// atomic compute, applying no-op/remove/write semantics per spec §4.4.
func (c *Container) Compute(segment *int, key string, action ComputeAction) (*Entry, error) {
	idx, err := c.resolveSegment(segment, key)
	if err != nil {
		return nil, err
	}
	seg := c.segments[idx]

	var result *Entry
	seg.Compute(key, func(prev *Entry, exists bool) (*Entry, bool) {
		next := action(key, prev, c.factory)

		if next == prev {
			result = next
			return prev, exists
		}
		if next == nil {
			if exists {
				c.activation.OnRemove(key, false)
			}
			result = nil
			return nil, false
		}

		wasAbsent := !exists
		next.Key = key
		c.activation.OnUpdate(key, wasAbsent)
		result = next
		return next, true
	})
	return result, nil
}

// SizeIncludingExpired returns the saturating sum of sizes over the given
// segments (all segments if none given); an out-of-range segment index is
// treated as size 0 rather than an error (spec §9 open question decision).
func (c *Container) SizeIncludingExpired(segments ...int) int {
	if len(segments) == 0 {
		segments = allSegmentIndices(len(c.segments))
	}
	total := 0
	for _, idx := range segments {
		if idx < 0 || idx >= len(c.segments) {
			continue
		}
		total = saturatingAdd(total, c.segments[idx].Size())
	}
	return total
}

// Clear removes all entries from the given segments (all segments if none given).
func (c *Container) Clear(segments ...int) {
	if len(segments) == 0 {
		segments = allSegmentIndices(len(c.segments))
	}
	for _, idx := range segments {
		if idx < 0 || idx >= len(c.segments) {
			continue
		}
		c.segments[idx].Clear()
	}
}

// Iterator returns a lazy, expiration-filtering iterator over the given segments
// (all segments if none given) — spec §4.7.
func (c *Container) Iterator(segments ...int) *iterate.Iterator[*Entry] {
	return c.buildIterator(segments, false)
}

// IteratorIncludingExpired is the administrative variant that skips expiration
// filtering entirely (spec §4.7).
func (c *Container) IteratorIncludingExpired(segments ...int) *iterate.Iterator[*Entry] {
	return c.buildIterator(segments, true)
}

func (c *Container) buildIterator(segments []int, includeExpired bool) *iterate.Iterator[*Entry] {
	if len(segments) == 0 {
		segments = allSegmentIndices(len(c.segments))
	}
	sources := make([]iterate.SegmentSource[*Entry], 0, len(segments))
	for _, idx := range segments {
		if idx < 0 || idx >= len(c.segments) {
			continue
		}
		sources = append(sources, c.segments[idx])
	}

	now := func() time.Time { return c.clock.WallClockTime() }
	localExpiry := func(e *Entry, t time.Time) bool { return e.IsExpiredAt(t) }
	filter := func(e *Entry, t time.Time) bool { return c.expiration.EntryExpiredInMemoryFromIteration(e, t) }
	return iterate.New[*Entry](sources, now, localExpiry, filter, includeExpired)
}

// RegisterListener adds a removal listener, returning a handle for
// UnregisterListener (spec §4.4, §13 supplemented unregister support).
func (c *Container) RegisterListener(fn RemovalListener) int64 {
	return c.listeners.Register(fn)
}

// UnregisterListener removes a previously registered listener.
func (c *Container) UnregisterListener(id int64) {
	c.listeners.Unregister(id)
}

// Stats aggregates hit/miss/eviction counters and current size across the given
// segments (all segments if none given) — spec §13 supplemented feature.
func (c *Container) Stats(segments ...int) Stats {
	if len(segments) == 0 {
		segments = allSegmentIndices(len(c.segments))
	}
	var agg Stats
	for _, idx := range segments {
		if idx < 0 || idx >= len(c.segments) {
			continue
		}
		s := c.stats[idx]
		agg.Hits += s.hits.Load()
		agg.Misses += s.misses.Load()
		agg.Evictions += s.evictions.Load()
		agg.Size += c.segments[idx].Size()
	}
	return agg
}

// SegmentCount returns N, the fixed number of segments.
func (c *Container) SegmentCount() int {
	return len(c.segments)
}

// Start binds the container for use, per spec §5 lifecycle. Idempotent.
func (c *Container) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	cachelog.Container().Info("container started", "segments", len(c.segments))
	return nil
}

// Stop clears every segment, draining eviction/passivation callbacks
// synchronously before returning, per spec §5 lifecycle ("on stop, segment maps
// are cleared and eviction/passivation callbacks drain synchronously before the
// container releases references"). Idempotent.
func (c *Container) Stop() error {
	if !c.started.CompareAndSwap(true, false) {
		return nil
	}
	for i := range c.segments {
		c.segments[i].Clear()
	}
	cachelog.Container().Info("container stopped")
	return nil
}
