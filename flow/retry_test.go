package flow_test

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/flow"
	"github.com/c360/streamkit/pkg/backoff"
	"github.com/c360/streamkit/testutil"
)

func retryConfig(attempts int) backoff.Config {
	return backoff.Config{
		MaxAttempts:  attempts,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}
}

func TestRetryResubscribesAfterError(t *testing.T) {
	boom := stderrors.New("transient")
	attempts := 0
	source := flow.Defer(func() flow.Producer[int] {
		attempts++
		if attempts < 3 {
			return flow.Fail[int](boom)
		}
		return flow.Just(42)
	})

	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.Retry(source, sched, retryConfig(3)).Subscribe(rec)

	require.Equal(t, 1, attempts)
	sched.Advance(10 * time.Millisecond)
	require.Equal(t, 2, attempts)
	sched.Advance(20 * time.Millisecond)
	require.Equal(t, 3, attempts)

	assert.Equal(t, []int{42}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestRetryExhaustsAttemptBudget(t *testing.T) {
	boom := stderrors.New("permanent")
	attempts := 0
	source := flow.Defer(func() flow.Producer[int] {
		attempts++
		return flow.Fail[int](boom)
	})

	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.Retry(source, sched, retryConfig(2)).Subscribe(rec)
	sched.Advance(10 * time.Millisecond)

	assert.Equal(t, 2, attempts)
	require.Error(t, rec.TerminalError())
	assert.True(t, stderrors.Is(rec.TerminalError(), boom))
	assert.True(t, stderrors.Is(rec.TerminalError(), errors.ErrRetryExhausted))
	assert.Zero(t, sched.Pending())
}

func TestRetryCarriesDemandAcrossAttempts(t *testing.T) {
	attempts := 0
	source := flow.Defer(func() flow.Producer[int] {
		attempts++
		if attempts == 1 {
			return flow.Fail[int](stderrors.New("boom"))
		}
		return flow.Just(1, 2, 3)
	})

	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int]()

	flow.Retry(source, sched, retryConfig(2)).Subscribe(rec)
	rec.Request(2)
	sched.Advance(10 * time.Millisecond)

	// Demand requested before the retry carries into the second attempt.
	assert.Equal(t, []int{1, 2}, rec.Items())
	assert.False(t, rec.Terminated())

	rec.Request(1)
	assert.Equal(t, []int{1, 2, 3}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestRetryCancelStopsPendingAttempt(t *testing.T) {
	attempts := 0
	source := flow.Defer(func() flow.Producer[int] {
		attempts++
		return flow.Fail[int](stderrors.New("boom"))
	})

	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.Retry(source, sched, retryConfig(5)).Subscribe(rec)
	require.Equal(t, 1, attempts)

	rec.Cancel()
	sched.Advance(time.Minute)

	assert.Equal(t, 1, attempts)
	assert.False(t, rec.Terminated())
}

func TestRetryDoesNotRetryCompletion(t *testing.T) {
	attempts := 0
	source := flow.Defer(func() flow.Producer[int] {
		attempts++
		return flow.Just(1)
	})

	sched := testutil.NewManualScheduler()
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.Retry(source, sched, retryConfig(5)).Subscribe(rec)
	sched.Advance(time.Minute)

	assert.Equal(t, 1, attempts)
	assert.Equal(t, []int{1}, rec.Items())
	assert.True(t, rec.Completed())
}
