// Package clock drives filter maintenance from the wall clock.
//
// Filters never read the clock themselves; a Maintainer measures elapsed
// time between ticks and reports it through cdbf.Filter.Maintain.
package clock

import (
	"context"
	"time"

	"github.com/fwojciec/cdbf"
)

// DefaultInterval is the tick interval used when Interval is zero.
const DefaultInterval = time.Second

// Maintainer periodically reports elapsed time to a filter.
// The filter must be safe for concurrent use if other goroutines access
// it while Run is active; see Locked.
type Maintainer struct {
	Filter cdbf.Filter

	// Interval between two maintenance calls.
	Interval time.Duration

	// MaxStep caps the elapsed time passed to a single Maintain call.
	// Longer gaps are split into several calls. Zero disables splitting.
	MaxStep time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	last time.Time
}

// Run ticks until ctx is canceled. It returns the first maintenance error,
// or nil once ctx is done.
func (m *Maintainer) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Reset(m.now())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Tick(m.now()); err != nil {
				return err
			}
		}
	}
}

// Reset sets the reference time the next Tick measures from.
func (m *Maintainer) Reset(now time.Time) {
	m.last = now
}

// Tick reports the time elapsed since the previous tick or Reset. A clock
// that moved backwards reports nothing.
func (m *Maintainer) Tick(now time.Time) error {
	elapsed := now.Sub(m.last)
	if elapsed <= 0 {
		return nil
	}
	m.last = now

	for elapsed > 0 {
		step := elapsed
		if m.MaxStep > 0 && step > m.MaxStep {
			step = m.MaxStep
		}
		if err := m.Filter.Maintain(step); err != nil {
			return err
		}
		elapsed -= step
	}
	return nil
}

func (m *Maintainer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
