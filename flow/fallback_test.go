package flow_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/flow"
	"github.com/c360/streamkit/testutil"
)

func TestOnErrorReturnSubstitutesFallbackItem(t *testing.T) {
	boom := stderrors.New("boom")
	p := flow.OnErrorReturn(flow.Fail[int](boom), func(error) int { return 99 })
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Equal(t, []int{99}, rec.Items())
	assert.True(t, rec.Completed())
	assert.NoError(t, rec.TerminalError())
}

func TestOnErrorReturnHoldsFallbackForDemand(t *testing.T) {
	boom := stderrors.New("boom")
	p := flow.OnErrorReturn(flow.Fail[int](boom), func(error) int { return 99 })
	rec := testutil.NewRecordingConsumer[int]()

	p.Subscribe(rec)
	assert.Empty(t, rec.Items())
	assert.False(t, rec.Terminated())

	rec.Request(1)
	assert.Equal(t, []int{99}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestOnErrorReturnPassesItemsThrough(t *testing.T) {
	called := false
	p := flow.OnErrorReturn(flow.Just(1, 2), func(error) int {
		called = true
		return 99
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Equal(t, []int{1, 2}, rec.Items())
	assert.True(t, rec.Completed())
	assert.False(t, called)
}

func TestOnErrorReturnFallbackPanicIsTerminal(t *testing.T) {
	p := flow.OnErrorReturn(flow.Fail[int](stderrors.New("boom")), func(error) int {
		panic("fallback exploded")
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	require.Error(t, rec.TerminalError())
	assert.True(t, errors.IsCallback(rec.TerminalError()))
}

func TestOnErrorResumeSwitchesToFallbackProducer(t *testing.T) {
	boom := stderrors.New("boom")
	p := flow.OnErrorResume(flow.Fail[int](boom), func(err error) flow.Producer[int] {
		require.Equal(t, boom, err)
		return flow.Just(7, 8)
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Equal(t, []int{7, 8}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestOnErrorResumeCarriesDemandIntoFallback(t *testing.T) {
	push := flow.NewPushProducer[int]()
	p := flow.OnErrorResume[int](push, func(error) flow.Producer[int] {
		return flow.Just(7, 8)
	})
	rec := testutil.NewRecordingConsumer[int]()

	p.Subscribe(rec)
	push.Emit(1)
	push.Fail(stderrors.New("boom"))

	// No demand yet; the fallback must wait for it.
	assert.Equal(t, []int{1}, rec.Items())
	assert.False(t, rec.Terminated())

	rec.Request(2)
	assert.Equal(t, []int{1, 7, 8}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestOnErrorResumeFallbackErrorIsTerminal(t *testing.T) {
	second := stderrors.New("second boom")
	p := flow.OnErrorResume(flow.Fail[int](stderrors.New("first boom")), func(error) flow.Producer[int] {
		return flow.Fail[int](second)
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Equal(t, second, rec.TerminalError())
}

func TestOnErrorResumeNilFallbackIsTerminal(t *testing.T) {
	p := flow.OnErrorResume(flow.Fail[int](stderrors.New("boom")), func(error) flow.Producer[int] {
		return nil
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	require.Error(t, rec.TerminalError())
	assert.True(t, errors.IsCallback(rec.TerminalError()))
}

func TestMapErrorRewritesTerminalError(t *testing.T) {
	boom := stderrors.New("boom")
	p := flow.MapError(flow.Fail[int](boom), func(err error) error {
		return fmt.Errorf("annotated: %w", err)
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	require.Error(t, rec.TerminalError())
	assert.True(t, stderrors.Is(rec.TerminalError(), boom))
	assert.Contains(t, rec.TerminalError().Error(), "annotated")
}

func TestMapErrorNilResultPreservesOriginal(t *testing.T) {
	boom := stderrors.New("boom")
	p := flow.MapError(flow.Fail[int](boom), func(error) error { return nil })
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Equal(t, boom, rec.TerminalError())
}

func TestMapErrorPassesItemsThrough(t *testing.T) {
	p := flow.MapError(flow.Just(1, 2), func(err error) error { return err })
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Equal(t, []int{1, 2}, rec.Items())
	assert.True(t, rec.Completed())
}
