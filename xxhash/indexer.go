// Package xxhash provides a key indexer using xxHash64 double hashing.
package xxhash

import (
	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/cdbf"
)

// Name identifies this indexer in persisted snapshots.
const Name = "xxhash"

// salt separates the second hash from the first.
var salt = []byte{0x9e, 0x37, 0x79, 0xb9}

var _ cdbf.Indexer = (*Indexer)(nil)

// Indexer derives slice offsets as h1 + i*h2 (Kirsch-Mitzenmacher), where
// h1 hashes the key and h2 hashes the key followed by a fixed salt.
type Indexer struct{}

// NewIndexer returns a new Indexer.
func NewIndexer() *Indexer {
	return &Indexer{}
}

// Indices returns numSlices offsets, each in [0, bitsPerSlice).
func (*Indexer) Indices(key []byte, numSlices, bitsPerSlice uint) []uint {
	d := xxhash.New()
	_, _ = d.Write(key)
	h1 := d.Sum64()
	_, _ = d.Write(salt)
	h2 := d.Sum64() | 1

	offsets := make([]uint, numSlices)
	for i := range offsets {
		offsets[i] = uint((h1 + uint64(i)*h2) % uint64(bitsPerSlice))
	}
	return offsets
}
