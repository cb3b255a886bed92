package segkv

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock is a controllable TimeService for deterministic expiration tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) WallClockTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingExpiration wraps noopExpiration but counts invocations, so tests can
// assert the hook is/isn't called per spec §8 boundary behaviors.
type countingExpiration struct {
	mu    sync.Mutex
	calls int
}

func (e *countingExpiration) EntryExpiredInMemory(entry *Entry, now time.Time) bool {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return entry.IsExpiredAt(now)
}

func (e *countingExpiration) EntryExpiredInMemoryFromIteration(entry *Entry, now time.Time) bool {
	return entry.IsExpiredAt(now)
}

func (e *countingExpiration) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// TestImmortalEntryNeverCallsExpirationHook is spec §8 scenario 1.
func TestImmortalEntryNeverCallsExpirationHook(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	hook := &countingExpiration{}
	c := New(WithSegmentCount(4), WithTimeService(clock), WithExpirationManager(hook))

	if err := c.Put(nil, "a", 1, Immortal()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := c.Get(nil, "a")
	if err != nil || got == nil || got.Value != 1 {
		t.Fatalf("Get(a) = %v, %v, want value 1", got, err)
	}

	clock.Advance(time.Hour)
	got, err = c.Get(nil, "a")
	if err != nil || got == nil || got.Value != 1 {
		t.Fatalf("Get(a) after 1h = %v, %v, want value 1 (immortal)", got, err)
	}
	if hook.count() != 0 {
		t.Fatalf("expiration hook must never be invoked for an immortal entry, called %d times", hook.count())
	}
}

// TestLifespanExpiryBoundary is spec §8 scenario 2.
func TestLifespanExpiryBoundary(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	hook := &countingExpiration{}
	c := New(WithSegmentCount(1), WithTimeService(clock), WithExpirationManager(hook))

	meta := Metadata{LifespanMillis: 100, MaxIdleMillis: -1}
	if err := c.Put(nil, "a", 1, meta); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	clock.Advance(50 * time.Millisecond)
	got, _ := c.Get(nil, "a")
	if got == nil || got.Value != 1 {
		t.Fatalf("Get(a) at T=50ms = %v, want value 1", got)
	}
	if hook.count() != 0 {
		t.Fatalf("hook must not be called before expiry, called %d times", hook.count())
	}

	clock.Advance(100 * time.Millisecond) // now T=150ms
	got, _ = c.Get(nil, "a")
	if got != nil {
		t.Fatalf("Get(a) at T=150ms = %v, want absent", got)
	}
	if hook.count() != 1 {
		t.Fatalf("hook must be called exactly once on the confirming read, called %d times", hook.count())
	}

	got, _ = c.Get(nil, "a")
	if got != nil {
		t.Fatalf("Get(a) after removal must stay absent")
	}
	if hook.count() != 1 {
		t.Fatalf("hook must not be called again for an already-absent key, called %d times", hook.count())
	}
}

// TestConcurrentComputeLinearizes is spec §8 scenario 3, through the container's
// public Compute operation rather than the raw segment map.
func TestConcurrentComputeLinearizes(t *testing.T) {
	c := New(WithSegmentCount(4))
	require.NoError(t, c.Put(nil, "a", 0, Immortal()))

	const perGoroutine = 1000
	increment := func(wg *sync.WaitGroup) {
		defer wg.Done()
		for i := 0; i < perGoroutine; i++ {
			_, err := c.Compute(nil, "a", func(key string, prev *Entry, factory EntryFactory) *Entry {
				next := factory.Update(prev, prev.Value.(int)+1, prev.Meta, prev.LastUsedAt)
				return next
			})
			require.NoError(t, err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go increment(&wg)
	go increment(&wg)
	wg.Wait()

	got, err := c.Get(nil, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2*perGoroutine, got.Value.(int))
}

// TestBoundedEvictionPassivatesAndNotifies is spec §8 scenario 4.
func TestBoundedEvictionPassivatesAndNotifies(t *testing.T) {
	passivated := make(chan string, 8)
	evicted := make(chan string, 8)

	c := New(
		WithSegmentCount(1),
		WithMaxEntries(2),
		WithPassivationEnabled(true),
		WithPassivationManager(passivationFunc(func(e *Entry) error {
			passivated <- e.Key
			return nil
		})),
		WithEvictionManager(evictionFunc(func(batch map[string]*Entry) {
			for k := range batch {
				evicted <- k
			}
		})),
	)

	must := func(err error) {
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	must(c.Put(nil, "a", 1, Immortal()))
	must(c.Put(nil, "b", 2, Immortal()))
	must(c.Put(nil, "c", 3, Immortal()))

	present := 0
	for _, k := range []string{"a", "b", "c"} {
		if e, _ := c.Get(nil, k); e != nil {
			present++
		}
	}
	if present != 2 {
		t.Fatalf("expected exactly 2 of 3 keys present after a maxEntries=2 eviction, got %d", present)
	}

	select {
	case k := <-passivated:
		if k == "" {
			t.Fatalf("expected a key passivated on eviction")
		}
	default:
		t.Fatalf("expected passivator.Passivate to be called for the evicted key")
	}
	select {
	case <-evicted:
	default:
		t.Fatalf("expected onEntryEviction to fire for the evicted key")
	}
}

// TestRemoveOfExpiredEntryConsultsHookAndReturnsAbsent is spec §8 scenario 6.
func TestRemoveOfExpiredEntryConsultsHookAndReturnsAbsent(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	hook := &countingExpiration{}
	removedBatches := make(chan map[string]*Entry, 4)

	c := New(WithSegmentCount(1), WithTimeService(clock), WithExpirationManager(hook))
	c.RegisterListener(func(removed map[string]*Entry) {
		removedBatches <- removed
	})

	if err := c.Put(nil, "a", 1, Metadata{LifespanMillis: 10, MaxIdleMillis: -1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	clock.Advance(100 * time.Millisecond)

	prev, err := c.Remove(nil, "a")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if prev != nil {
		t.Fatalf("Remove of an already-expired entry must discard the stale observation and return absent, got %v", prev)
	}
	if hook.count() != 1 {
		t.Fatalf("expiration hook must be consulted exactly once, called %d times", hook.count())
	}

	select {
	case batch := <-removedBatches:
		if _, ok := batch["a"]; !ok {
			t.Fatalf("expected the dead entry in the removal notification batch, got %v", batch)
		}
	default:
		t.Fatalf("expected a removal notification even though the entry was already expired")
	}

	got, _ := c.Get(nil, "a")
	if got != nil {
		t.Fatalf("Get(a) after Remove must return absent")
	}
}

func TestSizeIncludingExpiredSaturatesAndIgnoresMissingSegments(t *testing.T) {
	c := New(WithSegmentCount(2))
	must := func(err error) {
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	must(c.Put(intPtr(0), "a", 1, Immortal()))
	must(c.Put(intPtr(1), "b", 2, Immortal()))

	if got := c.SizeIncludingExpired(); got != 2 {
		t.Fatalf("SizeIncludingExpired() = %d, want 2", got)
	}
	if got := c.SizeIncludingExpired(0, 1, 99); got != 2 {
		t.Fatalf("SizeIncludingExpired with an out-of-range segment = %d, want 2 (missing segment treated as 0)", got)
	}
	if got := saturatingAdd(math.MaxInt-1, 5); got != math.MaxInt {
		t.Fatalf("saturatingAdd near max-int = %d, want math.MaxInt", got)
	}
}

func TestPutWithL1MetadataTagsEntryAndUnwrapsMetadata(t *testing.T) {
	c := New(WithSegmentCount(1))
	inner := Metadata{LifespanMillis: 500, MaxIdleMillis: -1}
	if err := c.Put(nil, "a", "v", L1Metadata{Inner: inner}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, _ := c.Get(nil, "a")
	if got == nil {
		t.Fatalf("expected entry present")
	}
	if !got.L1 {
		t.Fatalf("expected L1 flag set")
	}
	if got.Meta.LifespanMillis != 500 {
		t.Fatalf("expected visible metadata to be the inner metadata, got %+v", got.Meta)
	}
}

func intPtr(n int) *int { return &n }

type passivationFunc func(*Entry) error

func (f passivationFunc) Passivate(e *Entry) error { return f(e) }

type evictionFunc func(map[string]*Entry)

func (f evictionFunc) OnEntryEviction(batch map[string]*Entry) { f(batch) }

// recordingActivation counts OnUpdate/OnRemove calls so tests can assert a read
// never drives write-side collaborator bookkeeping.
type recordingActivation struct {
	mu      sync.Mutex
	updates int
	removes int
}

func (a *recordingActivation) OnUpdate(key string, wasAbsent bool) {
	a.mu.Lock()
	a.updates++
	a.mu.Unlock()
}

func (a *recordingActivation) OnRemove(key string, wasAbsent bool) {
	a.mu.Lock()
	a.removes++
	a.mu.Unlock()
}

func (a *recordingActivation) updateCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updates
}

// TestBoundedGetAndContainsKeyDoNotFireActivation guards against a regression
// where a bounded segment's storing Compute path treated a read-path re-store as
// a write-replace, spuriously firing activation.OnUpdate (and, with a durable
// ActivationManager wired in, a backing-store round trip) on every Get of a
// present key. Activation models a write installing a new entry over a
// previously-absent slot, not a read (spec §4.6) — Get and ContainsKey must
// never invoke it.
func TestBoundedGetAndContainsKeyDoNotFireActivation(t *testing.T) {
	am := &recordingActivation{}
	c := New(
		WithSegmentCount(1),
		WithMaxEntries(4),
		WithActivationManager(am),
	)

	if err := c.Put(nil, "a", 1, Immortal()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got := am.updateCount(); got != 1 {
		t.Fatalf("expected exactly one OnUpdate from the initial Put, got %d", got)
	}

	for i := 0; i < 5; i++ {
		if _, err := c.Get(nil, "a"); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}
	if _, err := c.ContainsKey(nil, "a"); err != nil {
		t.Fatalf("ContainsKey failed: %v", err)
	}

	if got := am.updateCount(); got != 1 {
		t.Fatalf("Get/ContainsKey of a present key must never fire activation.OnUpdate, got %d updates after the initial Put", got)
	}
}

// TestBoundedContainsKeyDoesNotPromoteRecency guards against a regression where
// ContainsKey re-stored the key it found, promoting LRU recency and letting a
// read rescue an entry from size eviction — diverging from peek's explicitly
// side-effect-free contract (spec §4.2).
func TestBoundedContainsKeyDoesNotPromoteRecency(t *testing.T) {
	c := New(WithSegmentCount(1), WithMaxEntries(2))

	must := func(err error) {
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	must(c.Put(nil, "a", 1, Immortal()))
	must(c.Put(nil, "b", 2, Immortal()))

	// Repeatedly checking "a" must not promote it ahead of "b" in recency.
	for i := 0; i < 5; i++ {
		if _, err := c.ContainsKey(nil, "a"); err != nil {
			t.Fatalf("ContainsKey failed: %v", err)
		}
	}
	must(c.Put(nil, "c", 3, Immortal()))

	got, _ := c.Get(nil, "a")
	if got != nil {
		t.Fatalf("expected ContainsKey to leave \"a\" as the least-recently-used entry, but it survived the size eviction")
	}
}

// TestBoundedPutOverExistingKeyFiresActivationExactlyOnce guards against a
// regression where a write over an existing key on the bounded variant
// double-fired activation.OnUpdate: once in Put's own compute closure and again
// via the segment's CauseReplaced bridge.
func TestBoundedPutOverExistingKeyFiresActivationExactlyOnce(t *testing.T) {
	am := &recordingActivation{}
	c := New(
		WithSegmentCount(1),
		WithMaxEntries(4),
		WithActivationManager(am),
	)

	if err := c.Put(nil, "a", 1, Immortal()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Put(nil, "a", 2, Immortal()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if got := am.updateCount(); got != 2 {
		t.Fatalf("expected exactly one OnUpdate per Put (2 total), got %d", got)
	}
}
