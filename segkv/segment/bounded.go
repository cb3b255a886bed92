package segment

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
)

// OnRemoved is invoked for every value that leaves a Bounded map, tagged with why.
type OnRemoved[V any] func(key string, value V, cause RemovalCause)

// Bounded is a size-limited SegmentMap variant backed by
// hashicorp/golang-lru/v2/simplelru, satisfying spec §3 SegmentMap(b) and the
// three-cause removal-notification contract of §4.2/§4.6. Grounded on the
// teacher's pkg/discord/cache/segment.go (map + intrusive LRU list, eviction under
// the same lock as Set) with the list/map pair replaced by the library the teacher
// already depends on transitively.
//
// Cause attribution: the underlying simplelru.LRU only exposes a single
// onEvicted(key, value) callback fired when Add() must make room for a new key
// (spec's "SIZE" case) — the library does not distinguish "chosen" from "removed"
// as separate steps, so those two steps of the §4.2 ordering contract are
// necessarily atomic here. CauseReplaced and CauseExplicit are synthesized by this
// wrapper: Replaced when Compute overwrites an existing key with a distinct value,
// Explicit when Compute/Clear removes a key outright. A Compute call that returns
// the exact value it was given is a true no-op (§4.2): no promotion, no
// notification. Touch promotes recency for a live key without ever treating the
// re-store as a replace, for read paths that must not drive write-side
// collaborators.
type Bounded[V comparable] struct {
	mu       sync.Mutex
	lru      *lru.LRU[string, V]
	onRemove OnRemoved[V]

	// sizeEvicted buffers keys evicted by the library during the in-flight
	// Compute/Add call so onRemove can be invoked with CauseSize *after* the
	// library's internal state is consistent (spec §4.2 step (iii), "post
	// removal").
	sizeEvicted []EvictedEntry[V]
}

// NewBounded constructs a bounded segment map with the given capacity (must be >
// 0). onRemoved receives every removal notification in the order spec §4.2/§4.6
// requires: the underlying library's own SIZE evictions, plus this wrapper's
// Replaced/Explicit notifications.
func NewBounded[V comparable](capacity int, onRemoved OnRemoved[V]) *Bounded[V] {
	b := &Bounded[V]{onRemove: onRemoved}
	l, err := lru.NewLRU[string, V](capacity, func(key string, value V) {
		b.sizeEvicted = append(b.sizeEvicted, EvictedEntry[V]{Key: key, Value: value, Cause: CauseSize})
	})
	if err != nil {
		// capacity <= 0: programmer error at construction time, not a runtime
		// collaborator failure; fall back to capacity 1 so the map stays usable
		// rather than panicking inside a library constructor.
		l, _ = lru.NewLRU[string, V](1, func(key string, value V) {
			b.sizeEvicted = append(b.sizeEvicted, EvictedEntry[V]{Key: key, Value: value, Cause: CauseSize})
		})
	}
	b.lru = l
	return b
}

func (b *Bounded[V]) Get(key string) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Get(key)
}

func (b *Bounded[V]) Peek(key string) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Peek(key)
}

func (b *Bounded[V]) Compute(key string, fn func(prev V, exists bool) (next V, shouldStore bool)) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, existed := b.lru.Peek(key)
	next, shouldStore := fn(prev, existed)

	if !shouldStore {
		if existed {
			b.lru.Remove(key)
			b.notifyLocked(key, prev, CauseExplicit)
		}
		var zero V
		return zero, false
	}

	if existed && next == prev {
		// Same reference: a true no-op (§4.2). No recency promotion, no
		// replace notification.
		return next, true
	}

	if existed {
		b.notifyLocked(key, prev, CauseReplaced)
	}
	b.lru.Add(key, next)
	b.drainSizeEvictionsLocked()
	return next, true
}

// Touch is the read-path counterpart to Compute: a live re-store promotes LRU
// recency but never fires a CauseReplaced notification, since the caller is
// refreshing an entry's last-used time (e.g. get's touch-on-read), not installing
// a new value over it.
func (b *Bounded[V]) Touch(key string, fn func(prev V, exists bool) (next V, shouldStore bool)) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, existed := b.lru.Peek(key)
	next, shouldStore := fn(prev, existed)

	if !shouldStore {
		if existed {
			b.lru.Remove(key)
			b.notifyLocked(key, prev, CauseExplicit)
		}
		var zero V
		return zero, false
	}

	b.lru.Add(key, next)
	b.drainSizeEvictionsLocked()
	return next, true
}

func (b *Bounded[V]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lru.Len()
}

func (b *Bounded[V]) Snapshot() []V {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := b.lru.Keys()
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		if v, ok := b.lru.Peek(k); ok {
			out = append(out, v)
		}
	}
	return out
}

func (b *Bounded[V]) Clear() {
	b.mu.Lock()
	keys := b.lru.Keys()
	removed := make([]EvictedEntry[V], 0, len(keys))
	for _, k := range keys {
		if v, ok := b.lru.Peek(k); ok {
			removed = append(removed, EvictedEntry[V]{Key: k, Value: v, Cause: CauseExplicit})
		}
	}
	b.lru.Purge()
	b.mu.Unlock()

	if b.onRemove != nil {
		for _, r := range removed {
			b.onRemove(r.Key, r.Value, r.Cause)
		}
	}
}

// notifyLocked fires onRemove immediately for a cause this wrapper synthesizes
// itself (Replaced, Explicit). Must be called with b.mu held; the callback runs
// while the lock is held because it is part of the same atomic compute step the
// segment's caller is already inside (spec §4.4: callbacks run inside the critical
// section). Collaborators are contracted not to call back into this segment.
func (b *Bounded[V]) notifyLocked(key string, value V, cause RemovalCause) {
	if b.onRemove != nil {
		b.onRemove(key, value, cause)
	}
}

// drainSizeEvictionsLocked flushes SIZE notifications buffered by the library's
// own onEvicted hook during the Add call that just completed. Must be called with
// b.mu held.
func (b *Bounded[V]) drainSizeEvictionsLocked() {
	if len(b.sizeEvicted) == 0 {
		return
	}
	batch := b.sizeEvicted
	b.sizeEvicted = nil
	if b.onRemove != nil {
		for _, e := range batch {
			b.onRemove(e.Key, e.Value, e.Cause)
		}
	}
}

var _ Map[int] = (*Bounded[int])(nil)
