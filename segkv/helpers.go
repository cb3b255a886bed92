package segkv

import (
	"math"

	"github.com/segmentedcache/segkv/cachelog"
)

func allSegmentIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// saturatingAdd adds delta to total without overflowing past math.MaxInt, per
// spec §8 boundary behavior: "sizeIncludingExpired saturates at max-int rather
// than overflowing."
func saturatingAdd(total, delta int) int {
	if delta <= 0 {
		return total
	}
	if total > math.MaxInt-delta {
		return math.MaxInt
	}
	return total + delta
}

func logListenerPanic(recovered any) {
	cachelog.Error().Error("removal listener panicked", "recovered", recovered)
}
