// Package sim provides the set-associative cache model for csim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - geometry.go: cache shape (s, E, b) and address decomposition into set index and tag
//   - lru.go: per-set recency order, an index-linked list with O(1) touch and evict
//   - cache.go: the hit/miss/eviction decision procedure
//
// runner.go replays a trace against a Cache, expanding modifies into two
// accesses and notifying EventObservers. metrics.go holds the Counters
// reported at the end of a run.
//
// # Architecture
//
// The sim package owns the model; collaborators live in sub-packages:
//   - sim/trace/: trace events and the lackey text reader
//   - sim/record/: SQLite recording of per-event outcomes
//
// # Determinism
//
// A Cache has no hidden inputs: replaying the same trace against a freshly
// built cache of the same Geometry always yields the same Counters. Free
// lines are filled in ascending way order and eviction is strictly LRU.
package sim
