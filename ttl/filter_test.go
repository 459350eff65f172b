package ttl_test

import (
	"testing"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/fwojciec/cdbf/ttl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive expiration", func(t *testing.T) {
		t.Parallel()

		_, err := ttl.NewFilter(0)
		require.Error(t, err)
		assert.Equal(t, cdbf.EINVALID, cdbf.ErrorCode(err))
	})

	t.Run("reports presence on second insert", func(t *testing.T) {
		t.Parallel()

		f, err := ttl.NewFilter(5 * time.Second)
		require.NoError(t, err)

		existing, err := f.Insert([]byte("key"))
		require.NoError(t, err)
		assert.False(t, existing)

		existing, err = f.Insert([]byte("key"))
		require.NoError(t, err)
		assert.True(t, existing)
		assert.Equal(t, uint(1), f.Count())
	})

	t.Run("forgets keys exactly at expiration", func(t *testing.T) {
		t.Parallel()

		f, err := ttl.NewFilter(5 * time.Second)
		require.NoError(t, err)
		_, err = f.Insert([]byte("key"))
		require.NoError(t, err)

		require.NoError(t, f.Maintain(4999*time.Millisecond))
		assert.True(t, f.Contains([]byte("key")))

		require.NoError(t, f.Maintain(time.Millisecond))
		assert.False(t, f.Contains([]byte("key")))
		assert.Equal(t, uint(0), f.Count())
	})

	t.Run("keeps the original deadline on repeated insert", func(t *testing.T) {
		t.Parallel()

		f, err := ttl.NewFilter(5 * time.Second)
		require.NoError(t, err)
		_, err = f.Insert([]byte("key"))
		require.NoError(t, err)

		require.NoError(t, f.Maintain(3*time.Second))
		existing, err := f.Insert([]byte("key"))
		require.NoError(t, err)
		require.True(t, existing)
		require.NoError(t, f.Maintain(3*time.Second))

		assert.False(t, f.Contains([]byte("key")))
	})

	t.Run("rejects negative elapsed time", func(t *testing.T) {
		t.Parallel()

		f, err := ttl.NewFilter(time.Second)
		require.NoError(t, err)

		err = f.Maintain(-time.Second)
		assert.Equal(t, cdbf.EINVALID, cdbf.ErrorCode(err))
	})
}
