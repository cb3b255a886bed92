// Package iterate implements the lazy, splittable, weakly-consistent iteration
// engine (spec §4.7/C7). It is generic over the stored value type for the same
// reason segkv/segment is: avoiding a circular import with the root package, which
// instantiates it with *Entry.
//
// Grounded on the teacher's internal/cache/composite.go pattern of wrapping
// several independent maps behind one logical sequence, generalized from
// "concatenate all children" to "lazily advance through segment snapshots,
// filtering as you go" per spec §4.7.
package iterate

import "time"

// Expirable is the minimal shape a candidate must offer for expiration filtering.
type Expirable interface {
	CanExpire() bool
}

// ExpirationFilter decides whether a candidate already locally known to be expired
// should actually be skipped. This mirrors ExpirationManager.
// EntryExpiredInMemoryFromIteration (spec §4.5): cheap, no veto consultation, no
// call back into any segment's compute.
type ExpirationFilter[V Expirable] func(value V, now time.Time) bool

// LocalExpiry reports whether value is expired as of now, independent of the
// filter hook; it is the "sample now, evaluate local predicate" half of spec
// §4.7's filtering requirement, split out so callers can supply their own
// Entry.IsExpiredAt-shaped check without this package depending on segkv.Entry.
type LocalExpiry[V Expirable] func(value V, now time.Time) bool

// SegmentSource exposes what a segment needs to offer the iteration engine: a
// weakly-consistent snapshot of its current values. Snapshotting (rather than
// holding a live cursor into the map) is what lets the engine "never hold locks
// across yields" (spec §4.7): the snapshot is taken once, under the segment's own
// lock, and iterated without it afterward.
type SegmentSource[V any] interface {
	Snapshot() []V
}

// Now supplies the current time; a plain function type so callers can inject a
// fake clock in tests without this package depending on segkv.TimeService.
type Now func() time.Time

// Iterator is a lazy, single-pass cursor over one or more segments' values,
// skipping expired candidates per spec §4.7. It satisfies the "distinct,
// concurrent, non-null" characteristics trivially: each underlying snapshot has
// unique keys within its own segment, and keys are never shared across segments
// (spec invariant 2), so the concatenation across segments has no duplicates.
type Iterator[V Expirable] struct {
	segments     []SegmentSource[V]
	segIdx       int
	buf          []V
	bufIdx       int
	now          Now
	localExpiry  LocalExpiry[V]
	expireFilter ExpirationFilter[V]
	includeDead  bool
}

// New builds an iterator over the given segment sources. When includeExpired is
// true, the filtering step is skipped entirely — this is the "including-expired"
// variant of spec §4.7, used by administrative operations like accurate sizing.
func New[V Expirable](segments []SegmentSource[V], now Now, localExpiry LocalExpiry[V], filter ExpirationFilter[V], includeExpired bool) *Iterator[V] {
	return &Iterator[V]{
		segments:     segments,
		now:          now,
		localExpiry:  localExpiry,
		expireFilter: filter,
		includeDead:  includeExpired,
	}
}

// TryAdvance attempts to produce the next non-expired value, sampling now once for
// this call (spec §4.7: "once per advance in the single-entry variant"). Returns
// false once every segment is exhausted.
func (it *Iterator[V]) TryAdvance() (V, bool) {
	sampled := it.now()
	for {
		if it.bufIdx >= len(it.buf) {
			if !it.advanceSegment() {
				var zero V
				return zero, false
			}
			continue
		}
		candidate := it.buf[it.bufIdx]
		it.bufIdx++
		if it.shouldYield(candidate, sampled) {
			return candidate, true
		}
	}
}

// ForEachRemaining drains the iterator, invoking fn for every yielded value. It
// samples now once for the whole call (spec §4.7: "once per batch in
// forEachRemaining"), rather than once per candidate.
func (it *Iterator[V]) ForEachRemaining(fn func(V)) {
	sampled := it.now()
	for {
		if it.bufIdx >= len(it.buf) {
			if !it.advanceSegment() {
				return
			}
			continue
		}
		candidate := it.buf[it.bufIdx]
		it.bufIdx++
		if it.shouldYield(candidate, sampled) {
			fn(candidate)
		}
	}
}

// shouldYield implements spec §4.7's filtering rule: "if canExpire, sample now,
// evaluate local expiry, and if true consult the iteration-expiration hook. If
// hook confirms, skip the entry; otherwise yield." A nil filter means there is no
// hook to consult, so a positive local expiry is authoritative on its own.
func (it *Iterator[V]) shouldYield(candidate V, sampled time.Time) bool {
	if it.includeDead {
		return true
	}
	if !candidate.CanExpire() {
		return true
	}
	if it.localExpiry == nil || !it.localExpiry(candidate, sampled) {
		return true
	}
	if it.expireFilter == nil {
		return false
	}
	return !it.expireFilter(candidate, sampled)
}

func (it *Iterator[V]) advanceSegment() bool {
	for it.segIdx < len(it.segments) {
		src := it.segments[it.segIdx]
		it.segIdx++
		snap := src.Snapshot()
		if len(snap) == 0 {
			continue
		}
		it.buf = snap
		it.bufIdx = 0
		return true
	}
	return false
}

// Split partitions the remaining, not-yet-visited segments roughly in half,
// returning a second iterator covering the back half; the receiver keeps the
// front half. Already-buffered values from the in-flight segment stay with the
// receiver. Per spec §4.7 "Splittable": the union of the two results equals what
// the original would have yielded, order unspecified. Returns nil if fewer than
// two whole segments remain, matching the conventional "cannot usefully split
// further" signal.
func (it *Iterator[V]) Split() *Iterator[V] {
	remaining := it.segments[it.segIdx:]
	if len(remaining) < 2 {
		return nil
	}
	mid := len(remaining) / 2
	back := remaining[mid:]
	it.segments = it.segments[:it.segIdx+mid]

	return &Iterator[V]{
		segments:     back,
		now:          it.now,
		localExpiry:  it.localExpiry,
		expireFilter: it.expireFilter,
		includeDead:  it.includeDead,
	}
}
