package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/bloom"
	"github.com/stretchr/testify/assert"
)

func TestIndexer_Indices(t *testing.T) {
	t.Parallel()

	t.Run("implements cdbf.Indexer interface", func(t *testing.T) {
		t.Parallel()
		var _ cdbf.Indexer = bloom.NewIndexer()
	})

	t.Run("returns one in-range offset per slice", func(t *testing.T) {
		t.Parallel()

		idx := bloom.NewIndexer()
		for i := range 1000 {
			offsets := idx.Indices([]byte(fmt.Sprintf("key-%d", i)), 6, 1358)
			assert.Len(t, offsets, 6)
			for _, off := range offsets {
				assert.Less(t, off, uint(1358))
			}
		}
	})

	t.Run("is deterministic per key", func(t *testing.T) {
		t.Parallel()

		a := bloom.NewIndexer().Indices([]byte("random_uuid"), 6, 1358)
		b := bloom.NewIndexer().Indices([]byte("random_uuid"), 6, 1358)
		assert.Equal(t, a, b)
	})

	t.Run("spreads keys across a slice", func(t *testing.T) {
		t.Parallel()

		const bits = 100
		idx := bloom.NewIndexer()
		var hits [bits]int
		for i := range 10000 {
			hits[idx.Indices([]byte(fmt.Sprintf("key-%d", i)), 1, bits)[0]]++
		}
		for off, n := range hits {
			assert.InDelta(t, 100, n, 50, "offset %d", off)
		}
	})
}
