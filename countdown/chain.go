package countdown

import (
	"time"

	"github.com/fwojciec/cdbf"
)

var _ cdbf.Filter = (*Chain)(nil)

// Chain is an append-only sequence of filter generations. Each new
// generation has Growth times the capacity of the previous one and
// ShrinkRatio times its error rate. Generations are never removed; they
// decay in place and are reused once maintenance frees them.
//
// Inserts go to the active generation or, when it is full, to the next
// generation with room. When no generation has room a new one is appended.
// A chain never rejects an insert.
type Chain struct {
	cfg     cdbf.ChainConfig
	indexer cdbf.Indexer
	filters []*Filter
	active  int
}

// NewChain returns an empty chain. The first generation is created on the
// first insert. Returns EINVALID if cfg is invalid.
func NewChain(cfg cdbf.ChainConfig, indexer cdbf.Indexer) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chain{
		cfg:     cfg,
		indexer: indexer,
		active:  cdbf.NoActive,
	}, nil
}

// RestoreChain rebuilds a chain from a state previously returned by State.
func RestoreChain(state cdbf.ChainState, indexer cdbf.Indexer) (*Chain, error) {
	if err := state.Validate(); err != nil {
		return nil, err
	}
	c, err := NewChain(state.Config, indexer)
	if err != nil {
		return nil, err
	}
	for _, fs := range state.Generations {
		f, err := RestoreFilter(fs, indexer)
		if err != nil {
			return nil, err
		}
		c.filters = append(c.filters, f)
	}
	c.active = state.Active
	return c, nil
}

// State returns a copy of the chain's state.
func (c *Chain) State() cdbf.ChainState {
	gens := make([]cdbf.FilterState, len(c.filters))
	for i, f := range c.filters {
		gens[i] = f.State()
	}
	return cdbf.ChainState{
		Config:      c.cfg,
		Active:      c.active,
		Generations: gens,
	}
}

// Contains reports whether any generation contains key, newest first.
func (c *Chain) Contains(key []byte) bool {
	for i := len(c.filters) - 1; i >= 0; i-- {
		if c.filters[i].Contains(key) {
			return true
		}
	}
	return false
}

// Insert records key and reports whether it was already present in any
// generation.
func (c *Chain) Insert(key []byte) (bool, error) {
	// Hash once per generation; the locations are reused for the write.
	locs := make([][]uint, len(c.filters))
	for i := len(c.filters) - 1; i >= 0; i-- {
		locs[i] = c.filters[i].Locations(key)
		if c.filters[i].ContainsLocations(locs[i]) {
			return true, nil
		}
	}

	for i := max(c.active, 0); i < len(c.filters); i++ {
		if c.filters[i].accepts() {
			return false, c.filters[i].write(locs[i])
		}
	}

	f, err := c.grow()
	if err != nil {
		return false, err
	}
	return false, f.write(f.Locations(key))
}

// grow appends a generation sized from the newest one and makes it active.
func (c *Chain) grow() (*Filter, error) {
	cfg := c.cfg.Generation(0)
	if n := len(c.filters); n > 0 {
		prev := c.filters[n-1].cfg
		cfg = c.cfg.Next(prev)
		if cfg.Capacity/uint(c.cfg.Growth) != prev.Capacity {
			return nil, cdbf.Errorf(cdbf.ECAPACITY, "chain cannot grow beyond capacity %d", prev.Capacity)
		}
	}

	f, err := NewFilter(cfg, c.indexer)
	if err != nil {
		return nil, err
	}
	c.filters = append(c.filters, f)
	c.active = len(c.filters) - 1
	return f, nil
}

// Maintain applies elapsed to every generation, oldest first, then points
// the chain at the earliest generation that is less than half full.
// Returns EINVALID if elapsed is negative or exceeds the chain's
// MaxElapsed; no generation is touched in that case.
func (c *Chain) Maintain(elapsed time.Duration) error {
	if err := checkElapsed(elapsed, c.cfg.MaxElapsed()); err != nil {
		return err
	}
	for _, f := range c.filters {
		f.maintain(elapsed)
	}

	c.active = cdbf.NoActive
	for i, f := range c.filters {
		if f.Fill() < saturationFill {
			c.active = i
			break
		}
	}
	return nil
}

// Config returns the chain's configuration.
func (c *Chain) Config() cdbf.ChainConfig { return c.cfg }

// Len returns the number of generations.
func (c *Chain) Len() int { return len(c.filters) }

// Generation returns the i-th generation, oldest first.
func (c *Chain) Generation(i int) *Filter { return c.filters[i] }

// Active returns the index of the active generation, or cdbf.NoActive.
func (c *Chain) Active() int { return c.active }

// Capacity returns the summed capacity of all generations.
func (c *Chain) Capacity() uint {
	var n uint
	for _, f := range c.filters {
		n += f.Capacity()
	}
	return n
}

// Count returns the summed count of all generations.
func (c *Chain) Count() uint {
	var n uint
	for _, f := range c.filters {
		n += f.Count()
	}
	return n
}

// EstimatedCount returns the summed cardinality estimate of all
// generations.
func (c *Chain) EstimatedCount() float64 {
	var n float64
	for _, f := range c.filters {
		n += f.EstimatedCount()
	}
	return n
}
