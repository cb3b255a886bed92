package partition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentForDeterministic(t *testing.T) {
	p := NewKeyPartitioner(16)
	for _, key := range []string{"a", "b", "user:42", "tenant/shard/7"} {
		first := p.SegmentFor(key)
		for i := 0; i < 100; i++ {
			if got := p.SegmentFor(key); got != first {
				t.Fatalf("SegmentFor(%q) not stable: got %d, want %d", key, got, first)
			}
		}
	}
}

func TestSegmentForInRange(t *testing.T) {
	p := NewKeyPartitioner(8)
	for i := 0; i < 1000; i++ {
		idx := p.SegmentFor(string(rune('a' + i%26)))
		if idx < 0 || idx >= 8 {
			t.Fatalf("SegmentFor out of range: %d", idx)
		}
	}
}

func TestNewKeyPartitionerZeroFallsBackToOne(t *testing.T) {
	p := NewKeyPartitioner(0)
	if p.SegmentCount() != 1 {
		t.Fatalf("SegmentCount() = %d, want 1", p.SegmentCount())
	}
	if idx := p.SegmentFor("anything"); idx != 0 {
		t.Fatalf("SegmentFor = %d, want 0", idx)
	}
}

func TestSegmentForPackageLevelMatchesPartitioner(t *testing.T) {
	p := NewKeyPartitioner(32)
	for _, key := range []string{"x", "y", "z:1", "z:2"} {
		if got, want := SegmentFor(key, 32), p.SegmentFor(key); got != want {
			t.Fatalf("SegmentFor(%q, 32) = %d, want %d", key, got, want)
		}
	}
}

func TestSegmentForDistributesAcrossSegments(t *testing.T) {
	const segments = 16
	seen := make(map[int]bool)
	for i := 0; i < 10000; i++ {
		key := string(rune(i%1000)) + "-key"
		seen[SegmentFor(key, segments)] = true
	}
	require.GreaterOrEqualf(t, len(seen), segments/2,
		"hash distribution too narrow: only %d/%d segments touched", len(seen), segments)
}
