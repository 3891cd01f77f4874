package flow_test

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/flow"
	"github.com/c360/streamkit/testutil"
)

func TestIntervalEmitsOnSchedule(t *testing.T) {
	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int64](testutil.WithAutoRequest(3))

	flow.Interval(sched, time.Second).Subscribe(rec)
	assert.Empty(t, rec.Items())

	sched.Advance(time.Second)
	assert.Equal(t, []int64{0}, rec.Items())

	sched.Advance(2 * time.Second)
	assert.Equal(t, []int64{0, 1, 2}, rec.Items())
	assert.False(t, rec.Terminated())
}

func TestIntervalTickWithoutDemandIsTerminal(t *testing.T) {
	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int64](testutil.WithAutoRequest(1))

	flow.Interval(sched, time.Second).Subscribe(rec)

	sched.Advance(time.Second)
	require.Equal(t, []int64{0}, rec.Items())

	// The second tick finds no outstanding demand.
	sched.Advance(time.Second)
	require.Error(t, rec.TerminalError())
	assert.True(t, errors.IsOverflow(rec.TerminalError()))
	assert.True(t, stderrors.Is(rec.TerminalError(), errors.ErrMissingBackfill))
}

func TestIntervalCancelStopsTicks(t *testing.T) {
	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int64](testutil.WithAutoRequest(flow.Unbounded))

	flow.Interval(sched, time.Second).Subscribe(rec)
	sched.Advance(time.Second)
	require.Equal(t, []int64{0}, rec.Items())

	rec.Cancel()
	sched.Advance(time.Minute)

	assert.Equal(t, []int64{0}, rec.Items())
	assert.False(t, rec.Terminated())
	assert.Zero(t, sched.Pending())
}

func TestIntervalAbsorbedByBackpressureBuffer(t *testing.T) {
	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int64]()

	flow.OnBackpressure(flow.Interval(sched, time.Second), flow.OverflowBufferUnbounded).Subscribe(rec)

	// OnBackpressure requests Unbounded upstream, so unrequested ticks queue
	// instead of terminating the subscription.
	sched.Advance(3 * time.Second)
	assert.Empty(t, rec.Items())
	assert.False(t, rec.Terminated())

	rec.Request(2)
	assert.Equal(t, []int64{0, 1}, rec.Items())
}
