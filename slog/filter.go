package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/cdbf"
)

// Ensure LoggingFilter implements cdbf.Filter.
var _ cdbf.Filter = (*LoggingFilter)(nil)

// generations is implemented by filters made of several generations.
type generations interface {
	Len() int
}

// LoggingFilter wraps a Filter with logging of maintenance passes,
// rejected inserts and chain growth.
type LoggingFilter struct {
	next    cdbf.Filter
	logger  *slog.Logger
	lastLen int
}

// NewLoggingFilter creates a new LoggingFilter.
func NewLoggingFilter(next cdbf.Filter, logger *slog.Logger) *LoggingFilter {
	f := &LoggingFilter{next: next, logger: logger}
	if g, ok := next.(generations); ok {
		f.lastLen = g.Len()
	}
	return f
}

// Contains delegates to the wrapped filter.
func (f *LoggingFilter) Contains(key []byte) bool {
	return f.next.Contains(key)
}

// Insert delegates to the wrapped filter. Failed inserts are logged as
// warnings and growth of the wrapped filter is logged once per new
// generation.
func (f *LoggingFilter) Insert(key []byte) (existing bool, err error) {
	existing, err = f.next.Insert(key)
	if err != nil {
		f.logger.Warn("insert rejected",
			"code", cdbf.ErrorCode(err),
			"count", f.next.Count(),
			"capacity", f.next.Capacity(),
			"err", err,
		)
		return existing, err
	}
	if g, ok := f.next.(generations); ok {
		if n := g.Len(); n != f.lastLen {
			f.logger.Info("filter grew",
				"generations", n,
				"capacity", f.next.Capacity(),
			)
			f.lastLen = n
		}
	}
	return existing, nil
}

// Maintain delegates to the wrapped filter and logs the pass at debug
// level, or at error level when it fails.
func (f *LoggingFilter) Maintain(elapsed time.Duration) (err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
		}
		f.logger.Log(context.Background(), level, "maintenance",
			"elapsed", elapsed,
			"count", f.next.Count(),
			"capacity", f.next.Capacity(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Maintain(elapsed)
}

// Count delegates to the wrapped filter.
func (f *LoggingFilter) Count() uint {
	return f.next.Count()
}

// Capacity delegates to the wrapped filter.
func (f *LoggingFilter) Capacity() uint {
	return f.next.Capacity()
}
