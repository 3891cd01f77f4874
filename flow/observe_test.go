package flow_test

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/flow"
	"github.com/c360/streamkit/testutil"
)

func TestObserveOnDeliversAllItemsInOrder(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int64](testutil.WithAutoRequest(flow.Unbounded))

	flow.ObserveOn(flow.Range(0, 100)).Subscribe(rec)

	require.NoError(t, rec.WaitTerminal(5*time.Second))
	items := rec.Items()
	require.Len(t, items, 100)
	for i, v := range items {
		require.Equal(t, int64(i), v)
	}
	assert.True(t, rec.Completed())
}

func TestObserveOnPropagatesError(t *testing.T) {
	boom := stderrors.New("boom")
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.ObserveOn(flow.Fail[int](boom)).Subscribe(rec)

	require.NoError(t, rec.WaitTerminal(5*time.Second))
	assert.Equal(t, boom, rec.TerminalError())
}

func TestObserveOnHonorsDownstreamDemand(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int64]()

	flow.ObserveOn(flow.Range(0, 10), flow.WithObservePrefetch(4)).Subscribe(rec)

	rec.Request(3)
	require.Eventually(t, func() bool { return len(rec.Items()) == 3 },
		2*time.Second, 5*time.Millisecond)
	assert.False(t, rec.Terminated())

	rec.Request(flow.Unbounded)
	require.NoError(t, rec.WaitTerminal(5*time.Second))
	assert.Len(t, rec.Items(), 10)
	assert.True(t, rec.Completed())
}

func TestObserveOnCancelStopsDelivery(t *testing.T) {
	push := flow.NewPushProducer[int]()
	rec := testutil.NewRecordingConsumer[int]()

	flow.ObserveOn[int](push).Subscribe(rec)
	rec.Cancel()

	assert.True(t, push.Cancelled())
	assert.False(t, rec.Terminated())
}
