package mock

import (
	"time"

	"github.com/fwojciec/cdbf"
)

var _ cdbf.Filter = (*Filter)(nil)

// Filter is a mock implementation of cdbf.Filter.
type Filter struct {
	ContainsFn func(key []byte) bool
	InsertFn   func(key []byte) (bool, error)
	MaintainFn func(elapsed time.Duration) error
	CountFn    func() uint
	CapacityFn func() uint
}

func (f *Filter) Contains(key []byte) bool {
	return f.ContainsFn(key)
}

func (f *Filter) Insert(key []byte) (bool, error) {
	return f.InsertFn(key)
}

func (f *Filter) Maintain(elapsed time.Duration) error {
	return f.MaintainFn(elapsed)
}

func (f *Filter) Count() uint {
	return f.CountFn()
}

func (f *Filter) Capacity() uint {
	return f.CapacityFn()
}
