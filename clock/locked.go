package clock

import (
	"sync"
	"time"

	"github.com/fwojciec/cdbf"
)

var _ cdbf.Filter = (*Locked)(nil)

// Locked serializes every call to the wrapped filter with one mutex.
// It is safe for concurrent use by multiple goroutines.
type Locked struct {
	mu sync.Mutex
	f  cdbf.Filter
}

// NewLocked wraps f.
func NewLocked(f cdbf.Filter) *Locked {
	return &Locked{f: f}
}

// Do calls fn with the lock held, for compound operations on the wrapped
// filter.
func (l *Locked) Do(fn func(f cdbf.Filter)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.f)
}

func (l *Locked) Contains(key []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Contains(key)
}

func (l *Locked) Insert(key []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Insert(key)
}

func (l *Locked) Maintain(elapsed time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Maintain(elapsed)
}

func (l *Locked) Count() uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Count()
}

func (l *Locked) Capacity() uint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Capacity()
}
