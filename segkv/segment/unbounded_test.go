package segment

import (
	"sync"
	"testing"
)

func TestUnboundedGetComputeRemove(t *testing.T) {
	m := NewUnbounded[int](nil)

	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected miss on empty map")
	}

	m.Compute("a", func(prev int, exists bool) (int, bool) {
		if exists {
			t.Fatalf("expected no prior value")
		}
		return 1, true
	})
	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}

	m.Compute("a", func(prev int, exists bool) (int, bool) {
		if !exists || prev != 1 {
			t.Fatalf("expected to observe prev=1, got %v %v", prev, exists)
		}
		return 0, false
	})
	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected a removed")
	}
}

func TestUnboundedPeekIsGet(t *testing.T) {
	m := NewUnbounded[string](nil)
	m.Compute("k", func(string, bool) (string, bool) { return "v", true })
	if v, ok := m.Peek("k"); !ok || v != "v" {
		t.Fatalf("Peek = %v %v, want v true", v, ok)
	}
}

func TestUnboundedSize(t *testing.T) {
	m := NewUnbounded[int](nil)
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		m.Compute(key, func(int, bool) (int, bool) { return i, true })
	}
	if got := m.Size(); got != 5 {
		t.Fatalf("Size() = %d, want 5", got)
	}
}

func TestUnboundedClearFiresOnRemoved(t *testing.T) {
	var mu sync.Mutex
	removed := map[string]int{}
	m := NewUnbounded[int](func(key string, value int) {
		mu.Lock()
		removed[key] = value
		mu.Unlock()
	})
	m.Compute("a", func(int, bool) (int, bool) { return 1, true })
	m.Compute("b", func(int, bool) (int, bool) { return 2, true })

	m.Clear()

	if m.Size() != 0 {
		t.Fatalf("expected empty map after Clear")
	}
	mu.Lock()
	defer mu.Unlock()
	if removed["a"] != 1 || removed["b"] != 2 {
		t.Fatalf("expected removal callbacks for both keys, got %v", removed)
	}
}

// TestUnboundedComputeLinearizes mirrors spec scenario 3: two goroutines each
// perform 1000 increments against the same key via Compute; the final value must
// be exactly 2000, proving no two Compute calls on the same key interleave.
func TestUnboundedComputeLinearizes(t *testing.T) {
	m := NewUnbounded[int](nil)
	const perGoroutine = 1000

	var wg sync.WaitGroup
	increment := func() {
		defer wg.Done()
		for i := 0; i < perGoroutine; i++ {
			m.Compute("counter", func(prev int, exists bool) (int, bool) {
				return prev + 1, true
			})
		}
	}

	wg.Add(2)
	go increment()
	go increment()
	wg.Wait()

	if v, ok := m.Get("counter"); !ok || v != 2*perGoroutine {
		t.Fatalf("counter = %v (ok=%v), want %d", v, ok, 2*perGoroutine)
	}
}

func TestUnboundedComputeReturningSameValueIsNoop(t *testing.T) {
	type box struct{ n int }
	m := NewUnbounded[*box](nil)
	original := &box{n: 7}
	m.Compute("k", func(*box, bool) (*box, bool) { return original, true })

	m.Compute("k", func(prev *box, exists bool) (*box, bool) {
		return prev, true
	})

	got, ok := m.Get("k")
	if !ok || got != original {
		t.Fatalf("expected the same pointer to survive a no-op compute")
	}
}

var _ Map[int] = NewUnbounded[int](nil)
