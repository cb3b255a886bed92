package segkv

import "time"

// TimeService supplies the container's notion of now. Grounded on the teacher's
// internal/cache/ttl_map.go, which samples time.Now() directly at each call site;
// here it is pulled out as a collaborator so tests can inject a controllable clock
// (spec §6, "TimeService").
type TimeService interface {
	// WallClockTime returns the current time. Monotonic is preferred but not
	// required.
	WallClockTime() time.Time
}

// systemClock is the default TimeService, backed by time.Now.
type systemClock struct{}

func (systemClock) WallClockTime() time.Time { return time.Now() }

// SystemClock returns the default TimeService.
func SystemClock() TimeService { return systemClock{} }

// KeyPartitioner routes a key to a segment index. Satisfied by
// github.com/segmentedcache/segkv/partition.KeyPartitioner; declared here as an
// interface so the container depends only on the capability (spec §6), not the
// concrete hash family.
type KeyPartitioner interface {
	SegmentFor(key string) int
	SegmentCount() int
}

// ExpirationManager implements the two predicates of spec §4.5. Both are consulted
// synchronously from inside a segment's compute critical section, so
// implementations MUST be fast and MUST NOT call back into the same container.
type ExpirationManager interface {
	// EntryExpiredInMemory is invoked from point reads/writes (get/containsKey/
	// remove). It may perform work a reaper would find useful (e.g. notifying a
	// cluster-wide expiration listener) since it is off the iteration hot path.
	EntryExpiredInMemory(entry *Entry, now time.Time) bool
	// EntryExpiredInMemoryFromIteration is invoked once per iteration candidate
	// and is expected to be cheap; it may defer expensive work rather than do it
	// inline.
	EntryExpiredInMemoryFromIteration(entry *Entry, now time.Time) bool
}

// ActivationManager is told about writes and removals so it can keep a backing
// store's staged activation/passivation bookkeeping consistent (spec §6, §4.6).
type ActivationManager interface {
	// OnUpdate fires after a write (put or a write-installing compute) installs
	// a new entry. wasAbsent is true when the write created a key that had no
	// prior in-memory entry, since installing over an absent slot usually means
	// we are re-materializing a previously passivated value. A read that merely
	// refreshes an entry's recency (get) never fires this.
	OnUpdate(key string, wasAbsent bool)
	// OnRemove fires after a key is removed, whether or not it was present.
	OnRemove(key string, wasAbsent bool)
}

// PassivationManager flushes an entry to a backing store when it leaves memory
// (spec §4.6, GLOSSARY "Passivation"). Container.Evict calls it before removing
// the entry. For a size-driven eviction on the bounded variant it is called after
// the bounded map has already dropped the entry, while the segment lock is still
// held and before eviction listeners are notified; it is not called before that
// removal.
type PassivationManager interface {
	Passivate(entry *Entry) error
}

// EvictionManager is notified, after the fact, of a batch of entries the bounded
// segment map evicted for size (spec §6 "EvictionManager").
type EvictionManager interface {
	OnEntryEviction(evicted map[string]*Entry)
}

// RemovalListener observes removals of any cause (explicit, evicted, or expired),
// delivered as a batch per spec §4.4 "Listeners".
type RemovalListener func(removed map[string]*Entry)

// noopActivation and noopPassivation are the defaults used when a container is
// built without those collaborators wired in (spec §6 lists them as capability
// sets the container consumes, not mandatory dependencies: a cache with
// passivationEnabled=false has no meaningful activation/passivation story).
type noopActivation struct{}

func (noopActivation) OnUpdate(string, bool) {}
func (noopActivation) OnRemove(string, bool) {}

type noopPassivation struct{}

func (noopPassivation) Passivate(*Entry) error { return nil }

type noopEviction struct{}

func (noopEviction) OnEntryEviction(map[string]*Entry) {}

type noopExpiration struct{}

func (noopExpiration) EntryExpiredInMemory(entry *Entry, now time.Time) bool {
	return entry.IsExpiredAt(now)
}

func (noopExpiration) EntryExpiredInMemoryFromIteration(entry *Entry, now time.Time) bool {
	return entry.IsExpiredAt(now)
}
