// Package partition implements the key-to-segment routing contract (spec §3 C3):
// a pure, deterministic function from key to segment index, independent of segment
// count churn except at explicit resize boundaries.
package partition

import "github.com/cespare/xxhash/v2"

// KeyPartitioner assigns a segment index in [0, segmentCount) to a key. Grounded on
// other_examples/8a369615_IvanBrykalov-shardcache's shard[K,V] hashing-to-bucket
// pattern, generalized off its built-in hash to xxhash for a stable, fast,
// non-cryptographic string hash (out-of-pack dependency: not imported by the
// teacher itself, but standard for exactly this job and already present
// transitively elsewhere in the retrieval pack).
type KeyPartitioner struct {
	segmentCount int
}

// NewKeyPartitioner builds a partitioner over segmentCount segments. segmentCount
// must be >= 1; callers that allow 0 get a single segment rather than a
// division-by-zero panic, since segment count is a construction-time container
// invariant, not a per-call one.
func NewKeyPartitioner(segmentCount int) KeyPartitioner {
	if segmentCount < 1 {
		segmentCount = 1
	}
	return KeyPartitioner{segmentCount: segmentCount}
}

// SegmentCount returns the number of segments this partitioner routes over.
func (p KeyPartitioner) SegmentCount() int {
	return p.segmentCount
}

// SegmentFor returns the deterministic segment index for key: the same key and the
// same segmentCount always yield the same index, with no dependency on insertion
// order or prior calls (spec §4.3 invariant).
func (p KeyPartitioner) SegmentFor(key string) int {
	return SegmentFor(key, p.segmentCount)
}

// SegmentFor is the pure hash-to-bucket function underlying KeyPartitioner,
// exported so callers that need to reason about routing without constructing a
// partitioner (e.g. tests, rebalancing tools) can call it directly.
func SegmentFor(key string, segmentCount int) int {
	if segmentCount < 1 {
		return 0
	}
	h := xxhash.Sum64String(key)
	return int(h % uint64(segmentCount))
}
