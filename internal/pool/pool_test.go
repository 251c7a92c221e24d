package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	created atomic.Int64
	closed  atomic.Int64
}

func (c *counter) pool(maxIdle int) *Pool[int64] {
	return New(
		maxIdle,
		func(context.Context) (int64, error) { return c.created.Add(1), nil },
		func(context.Context, int64) error {
			c.closed.Add(1)
			return nil
		},
	)
}

func TestPool(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reuses returned instances", func(t *testing.T) {
		c := &counter{}
		p := c.pool(2)

		v, err := p.Get(ctx)
		require.NoError(t, err)
		require.NoError(t, p.Put(ctx, v))
		assert.Equal(t, 1, p.Idle())

		again, err := p.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, v, again)
		assert.Equal(t, int64(1), c.created.Load())
	})

	t.Run("closes instances beyond the idle limit", func(t *testing.T) {
		c := &counter{}
		p := c.pool(1)

		a, err := p.Get(ctx)
		require.NoError(t, err)
		b, err := p.Get(ctx)
		require.NoError(t, err)

		require.NoError(t, p.Put(ctx, a))
		require.NoError(t, p.Put(ctx, b))
		assert.Equal(t, 1, p.Idle())
		assert.Equal(t, int64(1), c.closed.Load())
	})

	t.Run("close releases everything once", func(t *testing.T) {
		c := &counter{}
		p := c.pool(4)

		v, err := p.Get(ctx)
		require.NoError(t, err)
		require.NoError(t, p.Put(ctx, v))

		require.NoError(t, p.Close(ctx))
		require.NoError(t, p.Close(ctx))
		assert.Equal(t, int64(1), c.closed.Load())

		_, err = p.Get(ctx)
		require.ErrorIs(t, err, ErrClosed)
	})

	t.Run("put after close closes the instance", func(t *testing.T) {
		c := &counter{}
		p := c.pool(4)

		v, err := p.Get(ctx)
		require.NoError(t, err)
		require.NoError(t, p.Close(ctx))
		require.NoError(t, p.Put(ctx, v))
		assert.Equal(t, int64(1), c.closed.Load())
		assert.Equal(t, 0, p.Idle())
	})

	t.Run("factory errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		p := New(1,
			func(context.Context) (int, error) { return 0, boom },
			func(context.Context, int) error { return nil },
		)
		_, err := p.Get(ctx)
		require.ErrorIs(t, err, boom)
	})

	t.Run("close joins errors", func(t *testing.T) {
		boom := errors.New("boom")
		p := New(2,
			func(context.Context) (int, error) { return 1, nil },
			func(context.Context, int) error { return boom },
		)
		require.NoError(t, p.Put(ctx, 1))
		require.NoError(t, p.Put(ctx, 2))
		require.ErrorIs(t, p.Close(ctx), boom)
	})

	t.Run("concurrent use", func(t *testing.T) {
		c := &counter{}
		p := c.pool(4)

		var wg sync.WaitGroup
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 100 {
					v, err := p.Get(ctx)
					if !assert.NoError(t, err) {
						return
					}
					assert.NoError(t, p.Put(ctx, v))
				}
			}()
		}
		wg.Wait()

		require.NoError(t, p.Close(ctx))
		assert.Equal(t, c.created.Load(), c.closed.Load())
	})
}
