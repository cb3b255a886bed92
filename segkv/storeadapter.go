package segkv

import (
	"context"

	"github.com/segmentedcache/segkv/cachelog"
	"github.com/segmentedcache/segkv/store"
)

// StorePassivator adapts a durable store.Store into a PassivationManager,
// demonstrating the full passivate -> evict -> (later) activate round trip
// described qualitatively in spec §4.6/GLOSSARY. It recomputes the owning segment
// from the partitioner rather than threading a segment index through the
// PassivationManager interface, keeping that interface's shape exactly as spec §6
// defines it.
type StorePassivator struct {
	Store       *store.Store
	Partitioner KeyPartitioner
}

// NewStorePassivator builds a PassivationManager backed by a durable store.
func NewStorePassivator(s *store.Store, partitioner KeyPartitioner) *StorePassivator {
	return &StorePassivator{Store: s, Partitioner: partitioner}
}

func (p *StorePassivator) Passivate(entry *Entry) error {
	segment := p.Partitioner.SegmentFor(entry.Key)
	err := p.Store.Save(context.Background(), segment, entry.Key, entry.Value,
		entry.Meta.LifespanMillis, entry.Meta.MaxIdleMillis, entry.Meta.Version, entry.LastUsedAt)
	if err != nil {
		cachelog.Error().Error("passivate failed", "key", entry.Key, "error", err)
	}
	return err
}

// StoreActivator adapts a durable store.Store into an ActivationManager: OnUpdate
// purges any staged passivated copy once a fresh write supersedes it (spec §4.6,
// "activator is told onUpdate(K, wasAbsent=true) so it can purge any persisted
// copy staged for activation").
type StoreActivator struct {
	Store       *store.Store
	Partitioner KeyPartitioner
}

// NewStoreActivator builds an ActivationManager backed by a durable store.
func NewStoreActivator(s *store.Store, partitioner KeyPartitioner) *StoreActivator {
	return &StoreActivator{Store: s, Partitioner: partitioner}
}

func (a *StoreActivator) OnUpdate(key string, wasAbsent bool) {
	segment := a.Partitioner.SegmentFor(key)
	if _, _, err := a.Store.Activate(context.Background(), segment, key); err != nil {
		cachelog.Error().Error("activation purge failed", "key", key, "error", err)
	}
}

func (a *StoreActivator) OnRemove(key string, wasAbsent bool) {
	if wasAbsent {
		return
	}
	segment := a.Partitioner.SegmentFor(key)
	if err := a.Store.Delete(context.Background(), segment, key); err != nil {
		cachelog.Error().Error("activation delete on remove failed", "key", key, "error", err)
	}
}

var (
	_ PassivationManager = (*StorePassivator)(nil)
	_ ActivationManager  = (*StoreActivator)(nil)
)
