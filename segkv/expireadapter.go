package segkv

import (
	"time"

	"github.com/segmentedcache/segkv/expire"
)

// expireAdapter adapts expire.Manager (which is expressed over the expire.Entry
// interface to avoid importing this package) to the container's ExpirationManager
// contract, which is expressed over the concrete *Entry type.
type expireAdapter struct {
	m *expire.Manager
}

// WrapExpirationManager adapts a segkv/expire.Manager into an ExpirationManager
// this container accepts. Use this when a deployment wants the veto-capable
// default implementation instead of the bare local-predicate noop.
func WrapExpirationManager(m *expire.Manager) ExpirationManager {
	return expireAdapter{m: m}
}

func (a expireAdapter) EntryExpiredInMemory(entry *Entry, now time.Time) bool {
	return a.m.EntryExpiredInMemory(entry.Key, entry, now)
}

func (a expireAdapter) EntryExpiredInMemoryFromIteration(entry *Entry, now time.Time) bool {
	return a.m.EntryExpiredInMemoryFromIteration(entry, now)
}

var _ ExpirationManager = expireAdapter{}
