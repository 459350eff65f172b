// Package countdown implements a countdown Bloom filter with batched
// expiration maintenance and a chain of such filters that grows on demand.
//
// Each cell is an 8-bit counter. Inserts set a key's cells to 255 and
// maintenance sweeps the array decrementing one cell per step, so a key
// is forgotten once any of its cells reaches zero. The sweep cadence is
// calibrated from the configured expiration and the current fill level;
// no per-key timestamps are kept and the filter never reads the clock.
//
// Neither Filter nor Chain is safe for concurrent use.
package countdown

import (
	"fmt"
	"math"
	"time"

	"github.com/fwojciec/cdbf"
)

const (
	// counterInit is the value written to a key's cells on insert.
	counterInit = 255

	// initialUnset is the unset ratio assumed before the first maintenance
	// pass has sampled the array.
	initialUnset = 0.5

	// saturationFill is the fraction of nonzero cells above which a filter
	// stops accepting keys. An optimally sized filter at capacity has half
	// of its cells set.
	saturationFill = 0.5
)

var _ cdbf.Filter = (*Filter)(nil)

// Filter is a single fixed-capacity countdown Bloom filter.
//
// The cell array is partitioned into one slice per hash function. Slice i
// occupies cells [i*BitsPerSlice, (i+1)*BitsPerSlice).
type Filter struct {
	cfg     cdbf.Config
	indexer cdbf.Indexer

	numSlices    uint
	bitsPerSlice uint

	cells     []uint8
	count     uint
	head      uint
	unset     float64
	estimated float64

	// carry is elapsed time, in seconds, not yet spent on a decay step.
	carry float64

	// Steps and zero cells seen since unset was last sampled. The unset
	// ratio is only resampled once a full sweep of the array is covered.
	sweepSteps uint64
	sweepZeros uint64
}

// NewFilter returns an empty filter sized for cfg.
// Returns EINVALID if cfg is invalid.
func NewFilter(cfg cdbf.Config, indexer cdbf.Indexer) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Filter{
		cfg:          cfg,
		indexer:      indexer,
		numSlices:    cfg.NumSlices(),
		bitsPerSlice: cfg.BitsPerSlice(),
		unset:        initialUnset,
	}
	f.cells = make([]uint8, f.numSlices*f.bitsPerSlice)
	return f, nil
}

// RestoreFilter rebuilds a filter from a state previously returned by
// State. The indexer must be the one the state was built with.
func RestoreFilter(state cdbf.FilterState, indexer cdbf.Indexer) (*Filter, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	f, err := NewFilter(state.Config, indexer)
	if err != nil {
		return nil, err
	}
	copy(f.cells, state.Cells)
	f.count = state.Count
	f.head = state.Head
	f.unset = state.Unset
	f.estimated = state.Estimated
	return f, nil
}

// State returns a copy of the filter's state. Time carried over to the
// next step and samples of an unfinished sweep are not included.
func (f *Filter) State() cdbf.FilterState {
	cells := make([]byte, len(f.cells))
	copy(cells, f.cells)
	return cdbf.FilterState{
		Config:    f.cfg,
		Count:     f.count,
		Head:      f.head,
		Unset:     f.unset,
		Estimated: f.estimated,
		Cells:     cells,
	}
}

// Locations returns the per-slice offsets of key. They can be passed to
// ContainsLocations and InsertLocations to hash the key only once.
func (f *Filter) Locations(key []byte) []uint {
	return f.indexer.Indices(key, f.numSlices, f.bitsPerSlice)
}

// Contains reports whether all of key's cells are nonzero.
func (f *Filter) Contains(key []byte) bool {
	return f.ContainsLocations(f.Locations(key))
}

// ContainsLocations reports whether all cells at locs are nonzero.
// It panics if locs does not hold one in-range offset per slice.
func (f *Filter) ContainsLocations(locs []uint) bool {
	f.checkLocations(locs)
	for i, off := range locs {
		if f.cells[uint(i)*f.bitsPerSlice+off] == 0 {
			return false
		}
	}
	return true
}

// Insert records key and reports whether it was already present.
// Returns ECAPACITY if the filter is full.
func (f *Filter) Insert(key []byte) (bool, error) {
	return f.InsertLocations(f.Locations(key))
}

// InsertLocations is Insert for precomputed locations.
func (f *Filter) InsertLocations(locs []uint) (bool, error) {
	if f.ContainsLocations(locs) {
		return true, nil
	}
	return false, f.write(locs)
}

// write sets the cells at locs without checking membership.
func (f *Filter) write(locs []uint) error {
	if f.count > f.cfg.Capacity {
		return cdbf.Errorf(cdbf.ECAPACITY, "filter is at capacity (%d keys)", f.cfg.Capacity)
	}
	if f.Saturated() {
		return cdbf.Errorf(cdbf.ECAPACITY, "filter is saturated (%.1f%% of cells set)", 100*f.Fill())
	}
	for i, off := range locs {
		f.cells[uint(i)*f.bitsPerSlice+off] = counterInit
	}
	f.count++
	f.estimated++
	return nil
}

// accepts reports whether a chain may route new keys to this filter.
func (f *Filter) accepts() bool {
	return f.count < f.cfg.Capacity && !f.Saturated()
}

func (f *Filter) checkLocations(locs []uint) {
	if uint(len(locs)) != f.numSlices {
		panic(fmt.Sprintf("countdown: indexer returned %d offsets, want %d", len(locs), f.numSlices))
	}
	for i, off := range locs {
		if off >= f.bitsPerSlice {
			panic(fmt.Sprintf("countdown: offset %d for slice %d out of range [0, %d)", off, i, f.bitsPerSlice))
		}
	}
}

// Maintain applies the decay steps that fit into elapsed. Time left over
// after the last whole step is kept for the next call. The unset ratio,
// cardinality estimate and count are resampled once the steps taken since
// the last sample cover the whole array.
// Returns EINVALID if elapsed is negative or exceeds Config().MaxElapsed().
func (f *Filter) Maintain(elapsed time.Duration) error {
	if err := checkElapsed(elapsed, f.cfg.MaxElapsed()); err != nil {
		return err
	}
	f.maintain(elapsed)
	return nil
}

func (f *Filter) maintain(elapsed time.Duration) {
	total := f.carry + elapsed.Seconds()
	period := f.refreshPeriod()
	steps := uint64(math.Floor(total / period))
	f.carry = total - float64(steps)*period
	if steps == 0 {
		return
	}

	for range steps {
		if f.decay() {
			f.sweepZeros++
		}
	}
	f.sweepSteps += steps
	if f.sweepSteps < uint64(len(f.cells)) {
		return
	}

	f.unset = float64(f.sweepZeros) / float64(f.sweepSteps)
	f.sweepSteps, f.sweepZeros = 0, 0
	f.estimated = f.estimate()
	if n := uint(math.Round(f.estimated)); n < f.count {
		f.count = n
	}
}

// decay decrements the cell under the refresh head if it is nonzero and
// advances the head. It reports whether the cell was already zero.
func (f *Filter) decay() bool {
	zero := f.cells[f.head] == 0
	if !zero {
		f.cells[f.head]--
	}
	f.head++
	if f.head == uint(len(f.cells)) {
		f.head = 0
	}
	return zero
}

// refreshPeriod returns the interval between two decay steps, in seconds.
func (f *Filter) refreshPeriod() float64 {
	z := f.unset
	if z == 0 {
		z = f.minUnset()
	}
	return f.cfg.Expiration.Seconds() / float64(len(f.cells)) * (1 / (counterInit - 1 + 1/(z*float64(f.numSlices+1))))
}

// estimate returns the number of live keys implied by the unset ratio.
func (f *Filter) estimate() float64 {
	z := max(f.unset, f.minUnset())
	return -(float64(len(f.cells)) / float64(f.numSlices)) * math.Log(z)
}

// minUnset is the ratio of a single unset cell. It stands in for a zero
// unset ratio, which the refresh period and estimate cannot use.
func (f *Filter) minUnset() float64 {
	return 1 / float64(len(f.cells))
}

// RefreshPeriod returns the interval between two decay steps at the
// current fill level.
func (f *Filter) RefreshPeriod() time.Duration {
	return time.Duration(f.refreshPeriod() * float64(time.Second))
}

// Config returns the filter's configuration.
func (f *Filter) Config() cdbf.Config { return f.cfg }

// Capacity returns the number of keys the filter is sized for.
func (f *Filter) Capacity() uint { return f.cfg.Capacity }

// Count returns the number of keys inserted, lowered to the cardinality
// estimate after each full sweep.
func (f *Filter) Count() uint { return f.count }

// NumSlices returns the number of slices (hash functions).
func (f *Filter) NumSlices() uint { return f.numSlices }

// BitsPerSlice returns the number of cells per slice.
func (f *Filter) BitsPerSlice() uint { return f.bitsPerSlice }

// NumBits returns the number of cells.
func (f *Filter) NumBits() uint { return uint(len(f.cells)) }

// Head returns the position of the refresh head.
func (f *Filter) Head() uint { return f.head }

// Unset returns the fraction of zero cells seen by the last full sweep.
func (f *Filter) Unset() float64 { return f.unset }

// Fill returns the fraction of nonzero cells seen by the last full sweep.
func (f *Filter) Fill() float64 { return 1 - f.unset }

// Saturated reports whether more than half of the cells are set.
func (f *Filter) Saturated() bool { return f.Fill() > saturationFill }

// EstimatedCount returns the cardinality estimate of the last full sweep
// plus the keys inserted since.
func (f *Filter) EstimatedCount() float64 { return f.estimated }

func checkElapsed(elapsed, limit time.Duration) error {
	if elapsed < 0 {
		return cdbf.Errorf(cdbf.EINVALID, "elapsed time must be >= 0, got %s", elapsed)
	}
	if elapsed > limit {
		return cdbf.Errorf(cdbf.EINVALID, "elapsed time %s exceeds maximum %s", elapsed, limit)
	}
	return nil
}
