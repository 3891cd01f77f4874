package flow_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/flow"
)

func TestCollectGathersSequence(t *testing.T) {
	items, err := flow.Collect(context.Background(), flow.Range(0, 5))

	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, items)
}

func TestCollectReturnsTerminalError(t *testing.T) {
	boom := stderrors.New("boom")
	items, err := flow.Collect(context.Background(), flow.Fail[int](boom))

	assert.Equal(t, boom, err)
	assert.Empty(t, items)
}

func TestCollectContextCancellationDisposes(t *testing.T) {
	push := flow.NewPushProducer[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go func() {
		push.Emit(1)
		push.Emit(2)
		// Never terminates; the context has to.
	}()

	items, err := flow.Collect[int](ctx, push)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, len(items), 2)
}

func TestFirstReturnsFirstItem(t *testing.T) {
	v, err := flow.First(context.Background(), flow.Range(7, 100))

	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestFirstEmptySequence(t *testing.T) {
	_, err := flow.First(context.Background(), flow.Empty[string]())

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNoItems))
}

func TestConcurrentSubscriptionsAreIndependent(t *testing.T) {
	p := flow.Map(flow.Range(0, 200), func(v int64) (int64, error) {
		return v * 2, nil
	})

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			items, err := flow.Collect(ctx, p)
			if err != nil {
				return err
			}
			if len(items) != 200 {
				return stderrors.New("incomplete sequence")
			}
			for j, v := range items {
				if v != int64(j*2) {
					return stderrors.New("out-of-order delivery")
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
}
