// Package expire implements the default ExpirationManager (spec §4.5/C5): a
// synchronous local predicate joined immediately by the caller, with an optional
// synchronous Veto callback a reaper can use to override an expiration decision
// before the container commits to removing an entry.
//
// Grounded on the teacher's internal/cache/ttl_map.go lazy-expiration pattern
// (check-then-maybe-delete under a narrower lock), generalized into a standalone
// collaborator the container joins synchronously per spec §5.
package expire

import (
	"time"

	"github.com/segmentedcache/segkv/cachelog"
)

// Entry is the minimal shape this package needs from segkv.Entry, expressed as an
// interface to avoid importing the root package (which would create a cycle, since
// the container imports collaborator contracts the way it imports this package).
type Entry interface {
	IsExpiredAt(now time.Time) bool
}

// Veto is consulted, if non-nil, before the manager confirms an expiration decided
// by the local predicate. Returning true overrides the local decision and keeps the
// entry alive — this is the hook a cluster-wide reaper would use to say "a remote
// write refreshed this key, don't expire it locally yet".
type Veto func(key string, entry Entry, now time.Time) bool

// Manager is the default ExpirationManager: local-predicate plus an optional veto.
// Both predicates consult the same local check; they differ only in whether they
// are allowed to call the (potentially slower) veto hook, matching spec §4.5's
// split between the point-read and iteration paths.
type Manager struct {
	veto Veto
}

// New builds an expiration manager. veto may be nil, in which case the local
// predicate is authoritative (the common case for a single-node or test setup).
func New(veto Veto) *Manager {
	return &Manager{veto: veto}
}

// EntryExpiredInMemory is invoked from point reads/writes (get/containsKey/
// remove); it is allowed to consult the veto hook since it is off the iteration hot
// path (spec §4.5).
func (m *Manager) EntryExpiredInMemory(key string, entry Entry, now time.Time) bool {
	if !entry.IsExpiredAt(now) {
		return false
	}
	if m.veto != nil && m.veto(key, entry, now) {
		cachelog.Container().Debug("expiration vetoed", "key", key)
		return false
	}
	return true
}

// EntryExpiredInMemoryFromIteration is invoked once per iteration candidate and
// never calls the veto hook: spec §4.5 requires the iteration path to stay cheap,
// since it runs once per element of a potentially large scan.
func (m *Manager) EntryExpiredInMemoryFromIteration(entry Entry, now time.Time) bool {
	return entry.IsExpiredAt(now)
}
