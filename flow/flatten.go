package flow

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/c360/streamkit/errors"
)

// DefaultPrefetch is the per-inner-subscription demand the merge engine
// keeps outstanding, replenished one-for-one as buffered items drain
// downstream.
const DefaultPrefetch = 32

// MergeOption configures the merge engine.
type MergeOption func(*mergeSettings)

type mergeSettings struct {
	concurrency int
	prefetch    int
}

// WithConcurrency limits how many inner subscriptions may be active
// simultaneously. Zero or negative means unlimited.
func WithConcurrency(n int) MergeOption {
	return func(s *mergeSettings) {
		s.concurrency = n
	}
}

// WithPrefetch overrides the per-inner prefetch amount.
func WithPrefetch(n int) MergeOption {
	return func(s *mergeSettings) {
		if n > 0 {
			s.prefetch = n
		}
	}
}

// FlatMap transforms each outer item into an inner producer and interleaves
// the inner items into one downstream stream. Up to the configured
// concurrency limit of inner subscriptions are active at once; each inner
// completion frees a slot and triggers one additional outer request. Item
// arrival order across inner producers is emergent, not guaranteed. An error
// from any inner producer is handled fail-fast: all other active inner
// subscriptions are cancelled and the error propagates downstream
// immediately.
//
// All inner deliveries are serialized into the single downstream consumer:
// incoming items are enqueued and drained one at a time by whichever
// goroutine wins a non-blocking claim on the delivery right.
func FlatMap[T, R any](p Producer[T], transform func(T) Producer[R], opts ...MergeOption) Producer[R] {
	settings := mergeSettings{prefetch: DefaultPrefetch}
	for _, opt := range opts {
		opt(&settings)
	}
	return producerFunc[R](func(c Consumer[R]) {
		coord := &mergeCoordinator[T, R]{
			downstream: c,
			transform:  transform,
			settings:   settings,
			inners:     make(map[uuid.UUID]*mergeInner[T, R]),
		}
		p.Subscribe(coord)
	})
}

// mergeCoordinator is the outer consumer and the downstream token of one
// FlatMap subscription.
type mergeCoordinator[T, R any] struct {
	downstream Consumer[R]
	transform  func(T) Producer[R]
	settings   mergeSettings
	outer      FlowToken

	mu        sync.Mutex
	inners    map[uuid.UUID]*mergeInner[T, R]
	queue     []mergeEntry[T, R]
	outerDone bool
	termErr   error

	requested  atomic.Int64
	wip        atomic.Int64
	terminated atomic.Bool
}

// mergeEntry pairs a pending item with the inner subscription that supplied
// it, so the drain loop can replenish that inner's prefetch.
type mergeEntry[T, R any] struct {
	item  R
	inner *mergeInner[T, R]
}

func (mc *mergeCoordinator[T, R]) OnSubscribe(token FlowToken) {
	mc.outer = token
	mc.downstream.OnSubscribe(mc)
	if mc.settings.concurrency > 0 {
		token.Request(int64(mc.settings.concurrency))
	} else {
		token.Request(Unbounded)
	}
}

func (mc *mergeCoordinator[T, R]) OnItem(item T) {
	if mc.terminated.Load() {
		return
	}
	inner, err := mc.applyTransform(item)
	if err != nil {
		mc.fail(err)
		return
	}

	rec := &mergeInner[T, R]{coord: mc, id: uuid.New()}
	mc.mu.Lock()
	mc.inners[rec.id] = rec
	mc.mu.Unlock()

	inner.Subscribe(rec)
}

func (mc *mergeCoordinator[T, R]) applyTransform(item T) (p Producer[R], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, "FlatMap", "OnItem")
		}
	}()
	p = mc.transform(item)
	if p == nil {
		err = errors.WrapCallback(errors.ErrNotSubscribed, "FlatMap", "OnItem", "nil inner producer")
	}
	return p, err
}

func (mc *mergeCoordinator[T, R]) OnError(err error) {
	mc.fail(err)
}

func (mc *mergeCoordinator[T, R]) OnComplete() {
	mc.mu.Lock()
	mc.outerDone = true
	mc.mu.Unlock()
	mc.drain()
}

// Request implements the downstream FlowToken.
func (mc *mergeCoordinator[T, R]) Request(n int64) {
	if n <= 0 {
		mc.fail(errors.WrapMisuse(errors.ErrInvalidDemand, "FlatMap", "Request",
			fmt.Sprintf("request of %d", n)))
		return
	}
	addDemand(&mc.requested, n)
	mc.drain()
}

// Cancel implements the downstream FlowToken.
func (mc *mergeCoordinator[T, R]) Cancel() {
	if mc.terminated.Swap(true) {
		return
	}
	mc.outer.Cancel()
	mc.releaseInners()
}

// fail terminates fail-fast: the outer subscription and every active inner
// subscription are cancelled immediately, and the error is handed to the
// drain loop so it reaches the downstream consumer through the same single
// delivery claim items go through, never concurrently with an item.
func (mc *mergeCoordinator[T, R]) fail(err error) {
	mc.mu.Lock()
	first := mc.termErr == nil
	if first {
		mc.termErr = err
	}
	mc.mu.Unlock()
	if !first {
		return
	}
	mc.outer.Cancel()
	mc.releaseInners()
	mc.drain()
}

func (mc *mergeCoordinator[T, R]) releaseInners() {
	mc.mu.Lock()
	records := make([]*mergeInner[T, R], 0, len(mc.inners))
	for _, rec := range mc.inners {
		records = append(records, rec)
	}
	mc.inners = make(map[uuid.UUID]*mergeInner[T, R])
	mc.queue = nil
	mc.mu.Unlock()

	for _, rec := range records {
		if token := rec.token.Load(); token != nil {
			(*token).Cancel()
		}
	}
}

func (mc *mergeCoordinator[T, R]) enqueue(rec *mergeInner[T, R], item R) {
	if mc.terminated.Load() {
		return
	}
	mc.mu.Lock()
	mc.queue = append(mc.queue, mergeEntry[T, R]{item: item, inner: rec})
	mc.mu.Unlock()
	mc.drain()
}

func (mc *mergeCoordinator[T, R]) innerDone(rec *mergeInner[T, R]) {
	mc.mu.Lock()
	delete(mc.inners, rec.id)
	outerDone := mc.outerDone
	mc.mu.Unlock()

	// A completed inner frees a concurrency slot. With an unlimited outer
	// request this is a no-op on the saturated demand counter.
	if !outerDone && !mc.terminated.Load() {
		mc.outer.Request(1)
	}
	mc.drain()
}

// drain delivers queued items one at a time under the downstream demand
// budget. The delivery right is claimed with an atomic counter rather than a
// lock, so delivery that synchronously triggers further requests cannot
// deadlock or recurse unboundedly.
func (mc *mergeCoordinator[T, R]) drain() {
	if mc.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		for {
			if mc.terminated.Load() {
				return
			}

			mc.mu.Lock()
			err := mc.termErr
			if err != nil {
				mc.queue = nil
				mc.mu.Unlock()
				if !mc.terminated.Swap(true) {
					mc.downstream.OnError(err)
				}
				return
			}
			mc.mu.Unlock()

			if mc.requested.Load() == 0 {
				break
			}
			mc.mu.Lock()
			if len(mc.queue) == 0 {
				mc.mu.Unlock()
				break
			}
			entry := mc.queue[0]
			mc.queue = mc.queue[1:]
			mc.mu.Unlock()

			mc.downstream.OnItem(entry.item)
			subDemand(&mc.requested, 1)
			if token := entry.inner.token.Load(); token != nil {
				(*token).Request(1)
			}
		}

		mc.mu.Lock()
		finished := mc.outerDone && len(mc.inners) == 0 && len(mc.queue) == 0 && mc.termErr == nil
		mc.mu.Unlock()
		if finished {
			if !mc.terminated.Swap(true) {
				mc.downstream.OnComplete()
			}
			return
		}

		missed = mc.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// mergeInner is the consumer of one inner subscription.
type mergeInner[T, R any] struct {
	coord *mergeCoordinator[T, R]
	id    uuid.UUID
	token atomic.Pointer[FlowToken]
}

func (mi *mergeInner[T, R]) OnSubscribe(token FlowToken) {
	mi.token.Store(&token)
	token.Request(int64(mi.coord.settings.prefetch))
}

func (mi *mergeInner[T, R]) OnItem(item R) {
	mi.coord.enqueue(mi, item)
}

func (mi *mergeInner[T, R]) OnError(err error) {
	mi.coord.fail(err)
}

func (mi *mergeInner[T, R]) OnComplete() {
	mi.coord.innerDone(mi)
}
