// Package segment implements the per-segment concurrent map contract (spec §3 C2):
// an unbounded variant backed by a plain map with per-key atomic compute, and a
// bounded variant backed by a size-limited LRU policy that emits removal
// notifications tagged with a cause.
package segment

// Map is the SegmentMap contract of spec §4.2. V is the stored value type (the
// container instantiates this with its own *Entry type); keeping the segment
// package independent of the container's Entry type avoids a circular import and
// keeps the map reusable for any per-key payload. V is constrained to comparable
// so Compute can tell a true no-op (fn returns the same reference it was given)
// from a genuine replace, per §4.2 "returning same reference is a no-op".
type Map[V comparable] interface {
	// Get returns the current value for key, or the zero value and false.
	Get(key string) (V, bool)
	// Peek is identical to Get but is explicitly free of side effects (no
	// recency promotion on the bounded variant).
	Peek(key string) (V, bool)
	// Compute atomically reads and replaces the value for key. fn observes the
	// previous value exactly once; no two Compute calls on the same key run
	// concurrently. Returning shouldStore=false removes the entry; returning
	// the same reference fn was given is a true no-op (no recency promotion,
	// no notification); any other returned value is a genuine replace and, on
	// the bounded variant, fires a CauseReplaced notification.
	Compute(key string, fn func(prev V, exists bool) (next V, shouldStore bool)) (V, bool)
	// Touch is like Compute, but a live re-store (shouldStore=true, exists=true)
	// is never treated as a write-install: it promotes recency on the bounded
	// variant but never fires a CauseReplaced notification. Used by read-path
	// container operations (get) that refresh an entry's last-used time without
	// that refresh counting as a write for collaborator purposes (spec §4.4/§4.6
	// model activation as a side effect of a write, not a read).
	Touch(key string, fn func(prev V, exists bool) (next V, shouldStore bool)) (V, bool)
	// Size returns an approximate lower bound on the number of entries; the
	// unbounded variant returns an exact count.
	Size() int
	// Clear removes all entries, firing removal notifications with CauseExplicit.
	Clear()
	// Snapshot returns a point-in-time copy of all current values, taken under
	// the map's own lock and safe to range over without holding it afterward —
	// the primitive the iteration engine (segkv/iterate) builds on to satisfy
	// spec §4.7's "never holds locks across yields" requirement.
	Snapshot() []V
}

// EvictedEntry describes a value that left a bounded Map, tagged with the reason.
type EvictedEntry[V any] struct {
	Key   string
	Value V
	Cause RemovalCause
}
