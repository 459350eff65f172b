package slog_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/bloom"
	"github.com/fwojciec/cdbf/countdown"
	"github.com/fwojciec/cdbf/mock"
	cdbfslog "github.com/fwojciec/cdbf/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDebugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sizedFilter(maintainErr error) *mock.Filter {
	return &mock.Filter{
		MaintainFn: func(elapsed time.Duration) error { return maintainErr },
		CountFn:    func() uint { return 7 },
		CapacityFn: func() uint { return 100 },
	}
}

func TestLoggingFilter_Maintain(t *testing.T) {
	t.Parallel()

	t.Run("logs maintenance pass at debug level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		f := cdbfslog.NewLoggingFilter(sizedFilter(nil), newDebugLogger(&buf))

		require.NoError(t, f.Maintain(250*time.Millisecond))

		output := buf.String()
		assert.Contains(t, output, "level=DEBUG")
		assert.Contains(t, output, "msg=maintenance")
		assert.Contains(t, output, "elapsed=250ms")
		assert.Contains(t, output, "count=7")
		assert.Contains(t, output, "capacity=100")
		assert.Contains(t, output, "duration=")
	})

	t.Run("is silent at info level when maintenance succeeds", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		f := cdbfslog.NewLoggingFilter(sizedFilter(nil), logger)

		require.NoError(t, f.Maintain(time.Second))

		assert.Empty(t, buf.String())
	})

	t.Run("logs failed maintenance at error level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		f := cdbfslog.NewLoggingFilter(sizedFilter(errors.New("bad elapsed")), logger)

		require.Error(t, f.Maintain(time.Hour))

		output := buf.String()
		assert.Contains(t, output, "level=ERROR")
		assert.Contains(t, output, "err=\"bad elapsed\"")
	})
}

func TestLoggingFilter_Insert(t *testing.T) {
	t.Parallel()

	t.Run("logs rejected inserts with error code", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := sizedFilter(nil)
		inner.InsertFn = func(key []byte) (bool, error) {
			return false, cdbf.Errorf(cdbf.ECAPACITY, "filter is at capacity")
		}
		f := cdbfslog.NewLoggingFilter(inner, logger)

		_, err := f.Insert([]byte("key"))

		require.Error(t, err)
		assert.Equal(t, cdbf.ECAPACITY, cdbf.ErrorCode(err))
		output := buf.String()
		assert.Contains(t, output, "level=WARN")
		assert.Contains(t, output, "insert rejected")
		assert.Contains(t, output, "code=capacity")
	})

	t.Run("delegates successful inserts without logging", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Filter{
			InsertFn: func(key []byte) (bool, error) { return string(key) == "seen", nil },
		}
		f := cdbfslog.NewLoggingFilter(inner, logger)

		existing, err := f.Insert([]byte("seen"))
		require.NoError(t, err)
		assert.True(t, existing)

		existing, err = f.Insert([]byte("new"))
		require.NoError(t, err)
		assert.False(t, existing)

		assert.Empty(t, buf.String())
	})

	t.Run("logs each new chain generation once", func(t *testing.T) {
		t.Parallel()

		chain, err := countdown.NewChain(cdbf.ChainConfig{
			InitialCapacity: 10,
			ErrorRate:       0.01,
			Expiration:      time.Minute,
			Growth:          cdbf.SmallSetGrowth,
		}, bloom.NewIndexer())
		require.NoError(t, err)

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		f := cdbfslog.NewLoggingFilter(chain, logger)

		for i := range 10 {
			_, err := f.Insert([]byte{byte(i)})
			require.NoError(t, err)
		}
		require.Equal(t, 1, chain.Len())
		assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("filter grew")))
		assert.Contains(t, buf.String(), "generations=1")

		_, err = f.Insert([]byte("one more"))
		require.NoError(t, err)
		if chain.Len() == 2 {
			assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("filter grew")))
			assert.Contains(t, buf.String(), "generations=2")
		}
	})
}

func TestLoggingFilter_delegates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	inner := sizedFilter(nil)
	inner.ContainsFn = func(key []byte) bool { return string(key) == "key" }
	f := cdbfslog.NewLoggingFilter(inner, logger)

	assert.True(t, f.Contains([]byte("key")))
	assert.False(t, f.Contains([]byte("other")))
	assert.Equal(t, uint(7), f.Count())
	assert.Equal(t, uint(100), f.Capacity())
	assert.Empty(t, buf.String())
}
