package flow

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// Throttle returns a producer forwarding items admitted by limiter and
// silently discarding the rest. Admission uses the limiter's non-blocking
// path, so the upstream producer is never blocked; each discarded item's
// demand is renewed with one additional upstream request, keeping downstream
// demand accounting intact.
func Throttle[T any](p Producer[T], limiter *rate.Limiter, opts ...ThrottleOption[T]) Producer[T] {
	settings := throttleSettings[T]{}
	for _, opt := range opts {
		opt(&settings)
	}
	return producerFunc[T](func(c Consumer[T]) {
		p.Subscribe(&throttleConsumer[T]{
			downstream: c,
			limiter:    limiter,
			settings:   settings,
		})
	})
}

// ThrottleOption configures Throttle behavior.
type ThrottleOption[T any] func(*throttleSettings[T])

type throttleSettings[T any] struct {
	onDiscard func(T)
	logger    *slog.Logger
}

// WithDiscardHandler reports each item discarded by the rate limiter.
func WithDiscardHandler[T any](fn func(T)) ThrottleOption[T] {
	return func(s *throttleSettings[T]) {
		s.onDiscard = fn
	}
}

// WithThrottleLogger logs discarded items at debug level.
func WithThrottleLogger[T any](logger *slog.Logger) ThrottleOption[T] {
	return func(s *throttleSettings[T]) {
		s.logger = logger
	}
}

type throttleConsumer[T any] struct {
	downstream Consumer[T]
	limiter    *rate.Limiter
	settings   throttleSettings[T]
	token      FlowToken
}

func (t *throttleConsumer[T]) OnSubscribe(token FlowToken) {
	t.token = token
	t.downstream.OnSubscribe(token)
}

func (t *throttleConsumer[T]) OnItem(item T) {
	if t.limiter.Allow() {
		t.downstream.OnItem(item)
		return
	}
	if t.settings.onDiscard != nil {
		t.settings.onDiscard(item)
	}
	if t.settings.logger != nil {
		t.settings.logger.Debug("item discarded by throttle")
	}
	t.token.Request(1)
}

func (t *throttleConsumer[T]) OnError(err error) {
	t.downstream.OnError(err)
}

func (t *throttleConsumer[T]) OnComplete() {
	t.downstream.OnComplete()
}
