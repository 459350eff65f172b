// Package cdbf provides an approximate, memory-bounded "have I seen this
// key recently" test with time-based forgetting and automatic capacity
// growth, built from countdown Bloom filters.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency or concern (e.g., countdown/, bloom/,
// sqlite/).
package cdbf

import "time"

// Indexer maps a key to one bit offset per slice of a partitioned filter.
//
// Indices must return exactly numSlices offsets, each in [0, bitsPerSlice),
// and must be deterministic per key. The offsets are relative to the start
// of their slice.
type Indexer interface {
	Indices(key []byte, numSlices, bitsPerSlice uint) []uint
}

// Filter is an approximate membership set with time-based forgetting.
//
// Implementations are not safe for concurrent use unless documented
// otherwise; callers serialize access with one lock per filter.
type Filter interface {
	// Contains reports whether key has been inserted recently.
	// False positives are possible.
	Contains(key []byte) bool

	// Insert records key. It returns true if key was already present,
	// in which case nothing is written. Returns ECAPACITY if the filter
	// cannot accept more keys.
	Insert(key []byte) (bool, error)

	// Maintain advances the filter's notion of time by elapsed.
	// Returns EINVALID for negative or implausibly large values.
	Maintain(elapsed time.Duration) error

	// Count returns the logical number of live keys.
	Count() uint

	// Capacity returns the number of keys the filter is sized for.
	Capacity() uint
}
