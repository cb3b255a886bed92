package segkv

import (
	"testing"
	"time"
)

func TestMetadataCanExpire(t *testing.T) {
	if Immortal().CanExpire() {
		t.Fatalf("Immortal() must never be able to expire")
	}
	if !(Metadata{LifespanMillis: 100, MaxIdleMillis: -1}).CanExpire() {
		t.Fatalf("a positive lifespan must make an entry able to expire")
	}
	if !(Metadata{LifespanMillis: -1, MaxIdleMillis: 50}).CanExpire() {
		t.Fatalf("a positive max-idle must make an entry able to expire")
	}
}

func TestEntryIsExpiredAtLifespan(t *testing.T) {
	base := time.Unix(0, 0)
	e := &Entry{
		Meta:       Metadata{LifespanMillis: 100, MaxIdleMillis: -1},
		CreatedAt:  base,
		LastUsedAt: base,
	}
	if e.IsExpiredAt(base.Add(50 * time.Millisecond)) {
		t.Fatalf("must not be expired at T=50ms for a 100ms lifespan")
	}
	if !e.IsExpiredAt(base.Add(150 * time.Millisecond)) {
		t.Fatalf("must be expired at T=150ms for a 100ms lifespan")
	}
}

func TestEntryIsExpiredAtMaxIdle(t *testing.T) {
	base := time.Unix(0, 0)
	e := &Entry{
		Meta:       Metadata{LifespanMillis: -1, MaxIdleMillis: 30},
		CreatedAt:  base,
		LastUsedAt: base,
	}
	if e.IsExpiredAt(base.Add(20 * time.Millisecond)) {
		t.Fatalf("must not be expired before max-idle elapses")
	}
	if !e.IsExpiredAt(base.Add(30 * time.Millisecond)) {
		t.Fatalf("must be expired once max-idle has elapsed")
	}
}

func TestImmortalEntryNeverExpires(t *testing.T) {
	base := time.Unix(0, 0)
	e := &Entry{Meta: Immortal(), CreatedAt: base, LastUsedAt: base}
	if e.IsExpiredAt(base.Add(365 * 24 * time.Hour)) {
		t.Fatalf("an immortal entry must never be expired")
	}
}

func TestTouchIsMonotonic(t *testing.T) {
	base := time.Unix(100, 0)
	e := &Entry{LastUsedAt: base}

	later := e.touched(base.Add(time.Second))
	if !later.LastUsedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("touch must advance lastUsedAt forward")
	}

	earlier := later.touched(base)
	if earlier != later {
		t.Fatalf("touch must not move lastUsedAt backwards, and must be a no-op (same pointer) in that case")
	}
}

func TestEntryFactoryCreateAndUpdate(t *testing.T) {
	f := EntryFactory{}
	now := time.Unix(1000, 0)

	created := f.Create("k", "v1", Metadata{LifespanMillis: -1, MaxIdleMillis: -1}, now)
	if created.CreatedAt != now || created.LastUsedAt != now {
		t.Fatalf("Create must stamp createdAt = lastUsedAt = now")
	}

	later := now.Add(time.Minute)
	updated := f.Update(created, "v2", Metadata{LifespanMillis: -1, MaxIdleMillis: -1}, later)
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("Update must preserve createdAt from prev")
	}
	if !updated.LastUsedAt.Equal(later) {
		t.Fatalf("Update must advance lastUsedAt to now")
	}
	if updated.Value != "v2" {
		t.Fatalf("Update must install the new value")
	}
}

func TestEntryFactoryCreateL1TagsEntry(t *testing.T) {
	f := EntryFactory{}
	now := time.Unix(1, 0)
	e := f.CreateL1("k", "v", Metadata{LifespanMillis: 500, MaxIdleMillis: -1}, now)
	if !e.L1 {
		t.Fatalf("CreateL1 must tag the entry as L1")
	}
	if e.Meta.LifespanMillis != 500 {
		t.Fatalf("CreateL1 must store the inner metadata, not a wrapper")
	}
}

func TestEntryFactoryVersionStamping(t *testing.T) {
	f := EntryFactory{VersionEntries: true}
	now := time.Unix(1, 0)
	e1 := f.Create("k", 1, Metadata{}, now)
	e2 := f.Create("k", 1, Metadata{}, now)
	if e1.Meta.Version == "" || e2.Meta.Version == "" {
		t.Fatalf("expected non-empty version tokens when VersionEntries is enabled")
	}
	if e1.Meta.Version == e2.Meta.Version {
		t.Fatalf("expected distinct version tokens across separate creates")
	}
}
