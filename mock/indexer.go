package mock

import "github.com/fwojciec/cdbf"

var _ cdbf.Indexer = (*Indexer)(nil)

// Indexer is a mock implementation of cdbf.Indexer.
type Indexer struct {
	IndicesFn func(key []byte, numSlices, bitsPerSlice uint) []uint
}

func (i *Indexer) Indices(key []byte, numSlices, bitsPerSlice uint) []uint {
	return i.IndicesFn(key, numSlices, bitsPerSlice)
}
