package segkv

import (
	"time"

	"github.com/google/uuid"
)

// Metadata carries the expiration and versioning attributes of an Entry.
// LifespanMillis and MaxIdleMillis use -1 to mean "no bound" per spec §3.
type Metadata struct {
	LifespanMillis int64
	MaxIdleMillis  int64
	Version        string
}

// CanExpire reports whether an entry carrying this metadata can ever expire.
func (m Metadata) CanExpire() bool {
	return m.LifespanMillis >= 0 || m.MaxIdleMillis >= 0
}

// Immortal is the zero-bound metadata value: lifespan and max-idle both disabled.
func Immortal() Metadata {
	return Metadata{LifespanMillis: -1, MaxIdleMillis: -1}
}

// Entry is an immutable-on-write value wrapper: every mutation that isn't a touch
// produces a new *Entry rather than modifying one in place (spec §3 invariant 4).
type Entry struct {
	Key        string
	Value      any
	Meta       Metadata
	CreatedAt  time.Time
	LastUsedAt time.Time
	L1         bool
}

// CanExpire reports whether this entry can ever expire.
func (e *Entry) CanExpire() bool {
	return e.Meta.CanExpire()
}

// IsExpiredAt reports whether the entry is expired at time t, per spec §3:
// (lifespan >= 0 && t-createdAt >= lifespan) || (maxIdle >= 0 && t-lastUsed >= maxIdle).
func (e *Entry) IsExpiredAt(t time.Time) bool {
	if e.Meta.LifespanMillis >= 0 {
		if t.Sub(e.CreatedAt) >= time.Duration(e.Meta.LifespanMillis)*time.Millisecond {
			return true
		}
	}
	if e.Meta.MaxIdleMillis >= 0 {
		if t.Sub(e.LastUsedAt) >= time.Duration(e.Meta.MaxIdleMillis)*time.Millisecond {
			return true
		}
	}
	return false
}

// touched returns a copy of e with LastUsedAt advanced monotonically to now.
// touch never moves LastUsedAt backwards (spec §4.1).
func (e *Entry) touched(now time.Time) *Entry {
	if !now.After(e.LastUsedAt) {
		return e
	}
	cp := *e
	cp.LastUsedAt = now
	return &cp
}

// EntryFactory builds and derives entries, implementing the create/update/createL1
// contract of spec §4.1/§6 (EntryFactory collaborator).
type EntryFactory struct {
	// VersionEntries, when true, stamps a fresh UUID version token on every
	// create/update so collaborators can detect stale passivated copies.
	VersionEntries bool
}

// Create builds a brand-new entry: createdAt = lastUsedAt = now.
func (f EntryFactory) Create(key string, value any, meta Metadata, now time.Time) *Entry {
	meta = f.stampVersion(meta)
	return &Entry{
		Key:        key,
		Value:      value,
		Meta:       meta,
		CreatedAt:  now,
		LastUsedAt: now,
	}
}

// Update derives a replacement entry from prev: createdAt is always carried over
// from prev when prev is non-nil; meta has no way to reset it (callers that want a
// fresh createdAt pass prev=nil, which stamps now); lastUsedAt advances to now.
func (f EntryFactory) Update(prev *Entry, value any, meta Metadata, now time.Time) *Entry {
	meta = f.stampVersion(meta)
	createdAt := now
	if prev != nil {
		createdAt = prev.CreatedAt
	}
	return &Entry{
		Key:        keyOf(prev, value),
		Value:      value,
		Meta:       meta,
		CreatedAt:  createdAt,
		LastUsedAt: now,
		L1:         prev != nil && prev.L1,
	}
}

// CreateL1 builds an L1 (short-lived remote-cache copy) entry. L1Metadata wraps an
// inner Metadata; the caller unwraps before storing but the resulting Entry is
// tagged L1=true so downstream systems (activation, stats) can distinguish it from
// a primary entry, per spec §4.1/GLOSSARY.
func (f EntryFactory) CreateL1(key string, value any, inner Metadata, now time.Time) *Entry {
	e := f.Create(key, value, inner, now)
	e.L1 = true
	return e
}

func (f EntryFactory) stampVersion(meta Metadata) Metadata {
	if f.VersionEntries {
		meta.Version = uuid.NewString()
	}
	return meta
}

// keyOf preserves the key across an update when a previous entry is available;
// falls back to empty, which callers always overwrite before storing (the
// container always knows the key it is computing against).
func keyOf(prev *Entry, _ any) string {
	if prev != nil {
		return prev.Key
	}
	return ""
}

// L1Metadata wraps an inner Metadata to mark a write as an L1 (remote-owned,
// short-lived) copy, per spec §4.1/§4.4 "L1 handling".
type L1Metadata struct {
	Inner Metadata
}
