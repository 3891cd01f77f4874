package flow_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/flow"
	"github.com/c360/streamkit/testutil"
)

func TestRangeEmitsInOrder(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int64](testutil.WithAutoRequest(flow.Unbounded))

	flow.Range(1, 5).Subscribe(rec)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestRangeHonorsIncrementalDemand(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int64]()

	flow.Range(10, 5).Subscribe(rec)
	require.True(t, rec.Subscribed())
	assert.Empty(t, rec.Items())

	rec.Request(2)
	assert.Equal(t, []int64{10, 11}, rec.Items())
	assert.False(t, rec.Terminated())

	rec.Request(3)
	assert.Equal(t, []int64{10, 11, 12, 13, 14}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestRangeZeroCountCompletesImmediately(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int64]()

	flow.Range(0, 0).Subscribe(rec)

	assert.Empty(t, rec.Items())
	assert.True(t, rec.Completed())
}

func TestRangeInvalidDemandIsTerminal(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int64]()

	flow.Range(0, 10).Subscribe(rec)
	rec.Request(0)

	err := rec.TerminalError()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidDemand))
	assert.True(t, errors.IsMisuse(err))
	assert.Empty(t, rec.Items())
}

func TestRangeCancelStopsEmission(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int64]()

	flow.Range(0, 100).Subscribe(rec)
	rec.Request(2)
	require.Equal(t, []int64{0, 1}, rec.Items())

	rec.Cancel()
	rec.Cancel() // idempotent
	rec.Request(10)

	assert.Equal(t, []int64{0, 1}, rec.Items())
	assert.False(t, rec.Terminated())
}

func TestJustEmitsAllItems(t *testing.T) {
	rec := testutil.NewRecordingConsumer[string](testutil.WithAutoRequest(flow.Unbounded))

	flow.Just("a", "b", "c").Subscribe(rec)

	assert.Equal(t, []string{"a", "b", "c"}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestEmptyCompletesWithoutItems(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.Empty[int]().Subscribe(rec)

	assert.Empty(t, rec.Items())
	assert.True(t, rec.Completed())
}

func TestFailTerminatesImmediately(t *testing.T) {
	boom := stderrors.New("boom")
	rec := testutil.NewRecordingConsumer[int]()

	flow.Fail[int](boom).Subscribe(rec)

	assert.Equal(t, boom, rec.TerminalError())
	assert.Empty(t, rec.Items())
}

func TestDeferCreatesFreshSequencePerSubscription(t *testing.T) {
	calls := 0
	p := flow.Defer(func() flow.Producer[int] {
		calls++
		return flow.Just(calls)
	})

	first := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))
	second := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))
	p.Subscribe(first)
	p.Subscribe(second)

	assert.Equal(t, []int{1}, first.Items())
	assert.Equal(t, []int{2}, second.Items())
}

func TestDeferNilFactoryResultIsTerminal(t *testing.T) {
	p := flow.Defer[int](func() flow.Producer[int] { return nil })
	rec := testutil.NewRecordingConsumer[int]()

	p.Subscribe(rec)

	require.Error(t, rec.TerminalError())
	assert.True(t, errors.IsCallback(rec.TerminalError()))
}
