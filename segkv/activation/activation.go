// Package activation provides a logging ActivationManager/PassivationManager
// pair: an in-memory no-op implementation for tests and ephemeral deployments. A
// durable pair backed by segkv/store is built by the root package's
// StoreActivator/StorePassivator adapters, which translate the full *Entry the
// container's collaborator interfaces carry into the (segment, key) shape
// segkv/store persists.
package activation

import "github.com/segmentedcache/segkv/cachelog"

// Noop is an ActivationManager/PassivationManager pair that does nothing but log at
// debug level, wired in through the root package's WrapNoopActivation/
// WrapNoopPassivation. It suits deployments with passivationEnabled=false (spec §6
// configuration surface), where size-evictions become silent drops. A container
// built without these collaborators uses its own non-logging no-op defaults, not
// this type.
type Noop struct{}

func (Noop) OnUpdate(key string, wasAbsent bool) {
	cachelog.Eviction().Debug("activation onUpdate (noop)", "key", key, "wasAbsent", wasAbsent)
}

func (Noop) OnRemove(key string, wasAbsent bool) {
	cachelog.Eviction().Debug("activation onRemove (noop)", "key", key, "wasAbsent", wasAbsent)
}

// Passivate satisfies PassivationManager but performs no I/O; entries evicted for
// size are dropped rather than written anywhere.
func (Noop) Passivate(key string) error {
	cachelog.Eviction().Debug("passivate (noop, dropped)", "key", key)
	return nil
}
