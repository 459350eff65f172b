// Package ttl provides an exact membership filter that remembers each key
// for a fixed expiration. Memory grows with the number of live keys.
//
// Time is virtual: it only advances through Maintain, which makes the
// filter a reproducible reference for the approximate filters.
package ttl

import (
	"time"

	"github.com/fwojciec/cdbf"
)

var _ cdbf.Filter = (*Filter)(nil)

// Filter maps keys to their expiration deadline.
type Filter struct {
	expiration time.Duration
	now        time.Duration
	deadlines  map[string]time.Duration
}

// NewFilter returns an empty filter. Returns EINVALID if expiration is not
// positive.
func NewFilter(expiration time.Duration) (*Filter, error) {
	if expiration <= 0 {
		return nil, cdbf.Errorf(cdbf.EINVALID, "expiration must be > 0, got %s", expiration)
	}
	return &Filter{
		expiration: expiration,
		deadlines:  make(map[string]time.Duration),
	}, nil
}

// Contains reports whether key was inserted less than one expiration ago.
func (f *Filter) Contains(key []byte) bool {
	deadline, ok := f.deadlines[string(key)]
	if !ok {
		return false
	}
	if f.now >= deadline {
		delete(f.deadlines, string(key))
		return false
	}
	return true
}

// Insert records key and reports whether it was present. A present key
// keeps its original deadline, as in the countdown filters.
func (f *Filter) Insert(key []byte) (bool, error) {
	if f.Contains(key) {
		return true, nil
	}
	f.deadlines[string(key)] = f.now + f.expiration
	return false, nil
}

// Maintain advances the clock and drops expired keys.
func (f *Filter) Maintain(elapsed time.Duration) error {
	if elapsed < 0 {
		return cdbf.Errorf(cdbf.EINVALID, "elapsed time must be >= 0, got %s", elapsed)
	}
	f.now += elapsed
	for key, deadline := range f.deadlines {
		if f.now >= deadline {
			delete(f.deadlines, key)
		}
	}
	return nil
}

// Count returns the number of live keys.
func (f *Filter) Count() uint { return uint(len(f.deadlines)) }

// Capacity returns zero; the filter is unbounded.
func (f *Filter) Capacity() uint { return 0 }
