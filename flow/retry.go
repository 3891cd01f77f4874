package flow

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/pkg/backoff"
)

// Retry returns a producer that resubscribes to p after a terminal error,
// waiting between attempts according to the backoff config and giving up
// with the last error once the attempt budget is spent. Outstanding
// downstream demand carries over across attempts, so items already delivered
// are never re-counted against the downstream budget. Completion and
// cancellation are never retried.
func Retry[T any](p Producer[T], sched Scheduler, cfg backoff.Config) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		rc := &retryCoordinator[T]{
			downstream: c,
			source:     p,
			sched:      sched,
			cfg:        cfg,
		}
		// The downstream sees one stable subscription across all attempts.
		c.OnSubscribe(rc)
		rc.source.Subscribe(rc)
	})
}

// retryCoordinator is the attempt consumer and the downstream token of one
// Retry subscription. The demand arbiter carries unmet demand from a failed
// attempt into its successor.
type retryCoordinator[T any] struct {
	downstream Consumer[T]
	source     Producer[T]
	sched      Scheduler
	cfg        backoff.Config
	arbiter    demandArbiter

	mu         sync.Mutex
	attempt    int
	timer      CancelHandle
	terminated bool
}

func (rc *retryCoordinator[T]) OnSubscribe(token FlowToken) {
	rc.arbiter.setToken(token)
}

func (rc *retryCoordinator[T]) OnItem(item T) {
	if rc.isTerminated() {
		return
	}
	rc.downstream.OnItem(item)
	rc.arbiter.produced()
}

func (rc *retryCoordinator[T]) OnError(err error) {
	rc.arbiter.clearToken()

	rc.mu.Lock()
	if rc.terminated {
		rc.mu.Unlock()
		return
	}
	rc.attempt++
	if rc.attempt >= rc.cfg.Attempts() {
		rc.terminated = true
		rc.mu.Unlock()
		rc.downstream.OnError(errors.Wrap(stderrors.Join(errors.ErrRetryExhausted, err), "Retry", "OnError",
			fmt.Sprintf("%d attempts exhausted", rc.attempt)))
		return
	}
	delay := rc.cfg.Delay(rc.attempt)
	rc.timer = rc.sched.Schedule(delay, rc.resubscribe)
	rc.mu.Unlock()
}

func (rc *retryCoordinator[T]) resubscribe() {
	rc.mu.Lock()
	rc.timer = nil
	terminated := rc.terminated
	rc.mu.Unlock()
	if terminated {
		return
	}
	rc.source.Subscribe(rc)
}

func (rc *retryCoordinator[T]) OnComplete() {
	if rc.markTerminated() {
		return
	}
	rc.downstream.OnComplete()
}

// Request implements the downstream FlowToken.
func (rc *retryCoordinator[T]) Request(n int64) {
	if n <= 0 {
		if rc.markTerminated() {
			return
		}
		rc.arbiter.cancel()
		rc.downstream.OnError(errors.WrapMisuse(errors.ErrInvalidDemand, "Retry", "Request",
			fmt.Sprintf("request of %d", n)))
		return
	}
	rc.arbiter.request(n)
}

// Cancel implements the downstream FlowToken. It disposes a pending
// resubscription timer so no further attempt starts.
func (rc *retryCoordinator[T]) Cancel() {
	rc.mu.Lock()
	if rc.terminated {
		rc.mu.Unlock()
		return
	}
	rc.terminated = true
	timer := rc.timer
	rc.timer = nil
	rc.mu.Unlock()

	if timer != nil {
		timer.Dispose()
	}
	rc.arbiter.cancel()
}

func (rc *retryCoordinator[T]) isTerminated() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.terminated
}

func (rc *retryCoordinator[T]) markTerminated() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	was := rc.terminated
	rc.terminated = true
	return was
}
