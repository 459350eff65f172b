// Package bloom provides a key indexer backed by the murmur3 double hashing
// of github.com/bits-and-blooms/bloom.
package bloom

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/cdbf"
)

// Name identifies this indexer in persisted snapshots.
const Name = "murmur3"

var _ cdbf.Indexer = (*Indexer)(nil)

// Indexer derives one location per slice from the 128-bit murmur3 hash of
// the key.
type Indexer struct{}

// NewIndexer returns a new Indexer.
func NewIndexer() *Indexer {
	return &Indexer{}
}

// Indices returns numSlices offsets, each in [0, bitsPerSlice).
func (*Indexer) Indices(key []byte, numSlices, bitsPerSlice uint) []uint {
	locs := bloom.Locations(key, numSlices)
	offsets := make([]uint, numSlices)
	for i, loc := range locs {
		offsets[i] = uint(loc % uint64(bitsPerSlice))
	}
	return offsets
}
