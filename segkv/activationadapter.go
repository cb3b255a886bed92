package segkv

import "github.com/segmentedcache/segkv/activation"

// WrapNoopPassivation adapts activation.Noop's key-only Passivate into the
// container's PassivationManager contract, which carries the full entry. The
// adapter exists because activation.Noop is kept free of any dependency on the
// root package's *Entry type.
func WrapNoopPassivation(n activation.Noop) PassivationManager {
	return noopPassivationAdapter{n: n}
}

// WrapNoopActivation exposes activation.Noop directly: its OnUpdate/OnRemove
// signatures already match ActivationManager exactly.
func WrapNoopActivation(n activation.Noop) ActivationManager {
	return n
}

type noopPassivationAdapter struct {
	n activation.Noop
}

func (a noopPassivationAdapter) Passivate(entry *Entry) error {
	return a.n.Passivate(entry.Key)
}

var (
	_ ActivationManager  = activation.Noop{}
	_ PassivationManager = noopPassivationAdapter{}
)
