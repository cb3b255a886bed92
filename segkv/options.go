package segkv

// Storage selects the entry representation the container uses (spec §6
// configuration surface). The container only tracks the choice; no component in
// this module actually serializes entries differently per mode — that is left to
// an outer interceptor/marshalling layer, consistent with spec.md's Non-goals
// excluding the persistence/serialization layer from this container's scope.
type Storage string

const (
	StorageObject  Storage = "object"
	StorageBinary  Storage = "binary"
	StorageOffHeap Storage = "off-heap"
)

// Config is the typed configuration record the container recognizes (spec §6
// table). A typed record rather than a map is what spec.md means by "a
// collaborator produces a typed config record" — segkv/config is that
// collaborator; the container itself has no parsing code.
type Config struct {
	// SegmentCount is N, the fixed number of segments (spec §3).
	SegmentCount int
	// Storage selects the entry representation; tracked but not enforced by
	// this container (see Storage doc comment).
	Storage Storage
	// MaxEntries, if > 0, selects the bounded SegmentMap variant with this
	// per-segment capacity (spec §6: "applied per-segment... per policy" — this
	// implementation applies it per-segment, the simpler of the two policies
	// the spec allows).
	MaxEntries int
	// PassivationEnabled, if true, routes size-evictions through the
	// PassivationManager; if false, they are silent drops (spec §6).
	PassivationEnabled bool
	// VersionEntries, if true, stamps every entry with a fresh version token on
	// write (spec §3 metadata "optional version token").
	VersionEntries bool

	TimeService        TimeService
	ExpirationManager  ExpirationManager
	ActivationManager  ActivationManager
	PassivationManager PassivationManager
	EvictionManager    EvictionManager
	KeyPartitioner     KeyPartitioner
}

// Option configures a Config via functional options (spec §9: "Dependency
// injection by field annotation becomes explicit constructor wiring").
type Option func(*Config)

// WithSegmentCount sets N, the fixed segment count.
func WithSegmentCount(n int) Option {
	return func(c *Config) { c.SegmentCount = n }
}

// WithStorage sets the tracked entry representation.
func WithStorage(s Storage) Option {
	return func(c *Config) { c.Storage = s }
}

// WithMaxEntries selects the bounded SegmentMap variant with the given
// per-segment capacity. A value <= 0 keeps the unbounded variant.
func WithMaxEntries(n int) Option {
	return func(c *Config) { c.MaxEntries = n }
}

// WithPassivationEnabled toggles whether size-evictions call the
// PassivationManager.
func WithPassivationEnabled(enabled bool) Option {
	return func(c *Config) { c.PassivationEnabled = enabled }
}

// WithVersionEntries toggles per-write version-token stamping.
func WithVersionEntries(enabled bool) Option {
	return func(c *Config) { c.VersionEntries = enabled }
}

// WithTimeService injects a custom clock, e.g. for deterministic tests.
func WithTimeService(ts TimeService) Option {
	return func(c *Config) { c.TimeService = ts }
}

// WithExpirationManager injects the expiration-decision collaborator (C5).
func WithExpirationManager(em ExpirationManager) Option {
	return func(c *Config) { c.ExpirationManager = em }
}

// WithActivationManager injects the activation-bookkeeping collaborator.
func WithActivationManager(am ActivationManager) Option {
	return func(c *Config) { c.ActivationManager = am }
}

// WithPassivationManager injects the passivation collaborator used on
// size-driven eviction.
func WithPassivationManager(pm PassivationManager) Option {
	return func(c *Config) { c.PassivationManager = pm }
}

// WithEvictionManager injects the eviction-notification collaborator (C6).
func WithEvictionManager(em EvictionManager) Option {
	return func(c *Config) { c.EvictionManager = em }
}

// WithKeyPartitioner injects the key-to-segment routing collaborator (C3).
func WithKeyPartitioner(kp KeyPartitioner) Option {
	return func(c *Config) { c.KeyPartitioner = kp }
}

func defaultConfig() Config {
	return Config{
		SegmentCount:       1,
		Storage:            StorageObject,
		PassivationEnabled: false,
		TimeService:        SystemClock(),
		ExpirationManager:  noopExpiration{},
		ActivationManager:  noopActivation{},
		PassivationManager: noopPassivation{},
		EvictionManager:    noopEviction{},
	}
}
