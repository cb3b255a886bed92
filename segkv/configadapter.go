package segkv

import "github.com/segmentedcache/segkv/config"

// OptionsFromConfig translates a loaded config.Options record into the functional
// Options this package's New accepts. Collaborators (expiration/activation/
// passivation/eviction managers, clock, partitioner) are not part of the typed
// config record — those are still wired explicitly by the caller, per spec §9
// "explicit constructor wiring" for dependency injection.
func OptionsFromConfig(opts config.Options) []Option {
	return []Option{
		WithSegmentCount(opts.SegmentCount),
		WithStorage(Storage(opts.Storage)),
		WithMaxEntries(opts.MaxEntries),
		WithPassivationEnabled(opts.PassivationEnabled),
		WithVersionEntries(opts.VersionEntries),
	}
}
