package flow_test

import (
	stderrors "errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/flow"
	"github.com/c360/streamkit/testutil"
)

func pair(v int) flow.Producer[int] {
	return flow.Just(v*10, v*10+1)
}

func TestConcatMapPreservesOrder(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.ConcatMap(flow.Just(1, 2, 3), pair).Subscribe(rec)

	assert.Equal(t, []int{10, 11, 20, 21, 30, 31}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestConcatMapCarriesDemandAcrossInners(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int]()

	flow.ConcatMap(flow.Just(1, 2), pair).Subscribe(rec)
	rec.Request(3)

	// Demand left unmet by the first inner flows into the second.
	assert.Equal(t, []int{10, 11, 20}, rec.Items())
	assert.False(t, rec.Terminated())

	rec.Request(1)
	assert.Equal(t, []int{10, 11, 20, 21}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestConcatMapInnerErrorIsTerminal(t *testing.T) {
	boom := stderrors.New("inner boom")
	p := flow.ConcatMap(flow.Just(1, 2), func(v int) flow.Producer[int] {
		if v == 2 {
			return flow.Fail[int](boom)
		}
		return pair(v)
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Equal(t, []int{10, 11}, rec.Items())
	assert.True(t, stderrors.Is(rec.TerminalError(), boom))
}

func TestConcatMapEmptyInnersComplete(t *testing.T) {
	p := flow.ConcatMap(flow.Just(1, 2, 3), func(int) flow.Producer[int] {
		return flow.Empty[int]()
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	assert.Empty(t, rec.Items())
	assert.True(t, rec.Completed())
}

func TestFlatMapSerializedMatchesConcatOrder(t *testing.T) {
	// With one inner subscription at a time, the merge engine degenerates to
	// sequential flattening and the interleaving becomes deterministic.
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.FlatMap(flow.Just(1, 2, 3), pair, flow.WithConcurrency(1)).Subscribe(rec)

	assert.Equal(t, []int{10, 11, 20, 21, 30, 31}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestFlatMapMergesAllInnerItems(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	flow.FlatMap(flow.Just(1, 2, 3), pair).Subscribe(rec)

	assert.ElementsMatch(t, []int{10, 11, 20, 21, 30, 31}, rec.Items())
	assert.True(t, rec.Completed())
}

func TestFlatMapInnerErrorFailsFast(t *testing.T) {
	boom := stderrors.New("inner boom")
	p := flow.FlatMap(flow.Just(1, 2), func(v int) flow.Producer[int] {
		if v == 2 {
			return flow.Fail[int](boom)
		}
		return pair(v)
	}, flow.WithConcurrency(1))
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	require.Error(t, rec.TerminalError())
	assert.True(t, stderrors.Is(rec.TerminalError(), boom))
}

func TestFlatMapNilInnerProducerIsTerminal(t *testing.T) {
	p := flow.FlatMap(flow.Just(1), func(int) flow.Producer[int] { return nil })
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	require.Error(t, rec.TerminalError())
	assert.True(t, errors.IsCallback(rec.TerminalError()))
}

func TestFlatMapTransformPanicIsTerminal(t *testing.T) {
	p := flow.FlatMap(flow.Just(1), func(int) flow.Producer[int] {
		panic("transform exploded")
	})
	rec := testutil.NewRecordingConsumer[int](testutil.WithAutoRequest(flow.Unbounded))

	p.Subscribe(rec)

	require.Error(t, rec.TerminalError())
	assert.True(t, errors.IsCallback(rec.TerminalError()))
}

func TestFlatMapHonorsDownstreamDemand(t *testing.T) {
	rec := testutil.NewRecordingConsumer[int]()

	flow.FlatMap(flow.Just(1, 2), pair, flow.WithConcurrency(1)).Subscribe(rec)
	rec.Request(1)

	assert.Len(t, rec.Items(), 1)
	assert.False(t, rec.Terminated())

	rec.Request(3)
	assert.Len(t, rec.Items(), 4)
	assert.True(t, rec.Completed())
}

// goSource runs emit on its own goroutine once a consumer attaches, modeling
// an inner producer that delivers from a different goroutine than the outer.
type goSource[T any] struct {
	emit func(*flow.PushProducer[T])
}

func (s goSource[T]) Subscribe(c flow.Consumer[T]) {
	push := flow.NewPushProducer[T]()
	push.Subscribe(c)
	go s.emit(push)
}

// serialCheckConsumer counts deliveries that overlap in time. A conforming
// producer serializes all signals to a single consumer, so the overlap
// counter must stay zero even with concurrent inner producers.
type serialCheckConsumer struct {
	inFlight      atomic.Int32
	overlaps      atomic.Int32
	items         atomic.Int64
	afterTerminal atomic.Int64
	terminal      atomic.Bool

	err       error
	completed bool
	done      chan struct{}
}

func newSerialCheckConsumer() *serialCheckConsumer {
	return &serialCheckConsumer{done: make(chan struct{})}
}

func (c *serialCheckConsumer) enter() {
	if c.inFlight.Add(1) != 1 {
		c.overlaps.Add(1)
	}
	// Widen the delivery window so overlapping callers collide reliably.
	runtime.Gosched()
}

func (c *serialCheckConsumer) exit() {
	c.inFlight.Add(-1)
}

func (c *serialCheckConsumer) OnSubscribe(token flow.FlowToken) {
	token.Request(flow.Unbounded)
}

func (c *serialCheckConsumer) OnItem(int) {
	c.enter()
	defer c.exit()
	if c.terminal.Load() {
		c.afterTerminal.Add(1)
	}
	c.items.Add(1)
}

func (c *serialCheckConsumer) OnError(err error) {
	c.enter()
	defer c.exit()
	c.err = err
	if !c.terminal.Swap(true) {
		close(c.done)
	}
}

func (c *serialCheckConsumer) OnComplete() {
	c.enter()
	defer c.exit()
	c.completed = true
	if !c.terminal.Swap(true) {
		close(c.done)
	}
}

func (c *serialCheckConsumer) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal signal")
	}
}

func TestFlatMapSerializesConcurrentInnerDelivery(t *testing.T) {
	transform := func(int) flow.Producer[int] {
		return goSource[int]{emit: func(push *flow.PushProducer[int]) {
			for i := 0; i < 500; i++ {
				push.Emit(i)
			}
			push.Complete()
		}}
	}
	con := newSerialCheckConsumer()

	flow.FlatMap(flow.Just(1, 2, 3), transform).Subscribe(con)
	con.wait(t)

	assert.Zero(t, con.overlaps.Load())
	assert.Zero(t, con.afterTerminal.Load())
	assert.Equal(t, int64(1500), con.items.Load())
	assert.True(t, con.completed)
}

func TestFlatMapSerializesErrorAgainstConcurrentItems(t *testing.T) {
	boom := stderrors.New("inner boom")
	transform := func(v int) flow.Producer[int] {
		if v == 2 {
			return goSource[int]{emit: func(push *flow.PushProducer[int]) {
				push.Fail(boom)
			}}
		}
		return goSource[int]{emit: func(push *flow.PushProducer[int]) {
			for i := 0; i < 500 && !push.Cancelled(); i++ {
				push.Emit(i)
			}
			push.Complete()
		}}
	}
	con := newSerialCheckConsumer()

	flow.FlatMap(flow.Just(1, 2), transform).Subscribe(con)
	con.wait(t)

	// The terminal error must go through the same serialized delivery claim
	// as the items of the surviving inner; it never overlaps one of them and
	// nothing follows it.
	assert.Zero(t, con.overlaps.Load())
	assert.Zero(t, con.afterTerminal.Load())
	require.Error(t, con.err)
	assert.True(t, stderrors.Is(con.err, boom))
}

func TestConcatMapSerializesOuterErrorAgainstInnerItems(t *testing.T) {
	boom := stderrors.New("outer boom")
	outer := goSource[int]{emit: func(push *flow.PushProducer[int]) {
		push.Emit(1)
		push.Fail(boom)
	}}
	transform := func(int) flow.Producer[int] {
		return goSource[int]{emit: func(push *flow.PushProducer[int]) {
			for i := 0; i < 500 && !push.Cancelled(); i++ {
				push.Emit(i)
			}
			push.Complete()
		}}
	}
	con := newSerialCheckConsumer()

	flow.ConcatMap[int, int](outer, transform).Subscribe(con)
	con.wait(t)

	assert.Zero(t, con.overlaps.Load())
	assert.Zero(t, con.afterTerminal.Load())
	require.Error(t, con.err)
	assert.True(t, stderrors.Is(con.err, boom))
}
