// Package kvstore implements the on-disk sorted map of spec.md section
// 4.1: a bounded in-memory write buffer, tombstones, and a stack of
// immutable sorted tables compacted down to one. Store is implemented
// twice: Memory keeps everything in process memory (used by the
// in-memory annotation storage and graph-storage back-ends), and Badger
// persists the same contract to disk via BadgerDB, whose own
// memtable/SSTable/bloom-filter machinery is exactly the two-level
// design spec.md asks for, so it is used directly rather than
// re-implemented.
package kvstore

// Store is the contract every persistent or in-memory sorted map in the
// engine is built against.
type Store interface {
	// Insert sets key to value, shadowing any previous value or
	// tombstone for the same key.
	Insert(key, value []byte) error

	// Remove marks key as deleted. A subsequent Get returns (nil,
	// false, nil); a subsequent Range skips it.
	Remove(key []byte) error

	// Get returns the value for key and true, or (nil, false, nil) if
	// key is absent or has been removed.
	Get(key []byte) ([]byte, bool, error)

	// Range calls fn for every non-tombstoned key k with lo <= k < hi,
	// in ascending order. A nil hi means unbounded above. fn returns
	// false to stop iteration early.
	Range(lo, hi []byte, fn func(key, value []byte) (bool, error)) error

	// Compact folds all backing tables (and, for Memory, the buffer)
	// into the smallest possible durable representation, dropping
	// tombstones.
	Compact() error

	// Len returns the number of live (non-tombstoned) keys. It is
	// O(n) on implementations that do not maintain a running count.
	Len() (int64, error)

	Close() error
}
