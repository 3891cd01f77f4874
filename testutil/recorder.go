package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/c360/streamkit/flow"
)

// RecordingConsumer is a flow.Consumer that records every signal it receives
// in order, for later assertion. It is safe for concurrent delivery, though
// a correct producer serializes deliveries anyway; the recorder does not
// assume the producer is correct.
type RecordingConsumer[T any] struct {
	mu      sync.Mutex
	token   flow.FlowToken
	signals []flow.Signal[T]

	subscribed  bool
	autoRequest int64
	terminal    chan struct{}
}

// RecorderOption configures a RecordingConsumer.
type RecorderOption func(*recorderSettings)

type recorderSettings struct {
	autoRequest int64
}

// WithAutoRequest makes the recorder request n on subscription. Use
// flow.Unbounded for fully demand-insensitive recording.
func WithAutoRequest(n int64) RecorderOption {
	return func(s *recorderSettings) {
		s.autoRequest = n
	}
}

// NewRecordingConsumer creates a recorder. Without WithAutoRequest the
// recorder issues no demand on its own; drive it through Token and Request.
func NewRecordingConsumer[T any](opts ...RecorderOption) *RecordingConsumer[T] {
	settings := recorderSettings{}
	for _, opt := range opts {
		opt(&settings)
	}
	return &RecordingConsumer[T]{
		autoRequest: settings.autoRequest,
		terminal:    make(chan struct{}),
	}
}

func (r *RecordingConsumer[T]) OnSubscribe(token flow.FlowToken) {
	r.mu.Lock()
	r.token = token
	r.subscribed = true
	auto := r.autoRequest
	r.mu.Unlock()

	if auto != 0 {
		token.Request(auto)
	}
}

func (r *RecordingConsumer[T]) OnItem(item T) {
	r.mu.Lock()
	r.signals = append(r.signals, flow.ItemSignal(item))
	r.mu.Unlock()
}

func (r *RecordingConsumer[T]) OnError(err error) {
	r.mu.Lock()
	r.signals = append(r.signals, flow.ErrorSignal[T](err))
	r.mu.Unlock()
	close(r.terminal)
}

func (r *RecordingConsumer[T]) OnComplete() {
	r.mu.Lock()
	r.signals = append(r.signals, flow.CompleteSignal[T]())
	r.mu.Unlock()
	close(r.terminal)
}

// Token returns the FlowToken received on subscription, or nil before it.
func (r *RecordingConsumer[T]) Token() flow.FlowToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

// Request issues demand through the recorded token.
func (r *RecordingConsumer[T]) Request(n int64) {
	if token := r.Token(); token != nil {
		token.Request(n)
	}
}

// Cancel cancels through the recorded token.
func (r *RecordingConsumer[T]) Cancel() {
	if token := r.Token(); token != nil {
		token.Cancel()
	}
}

// Subscribed reports whether OnSubscribe has been delivered.
func (r *RecordingConsumer[T]) Subscribed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subscribed
}

// Signals returns a copy of all recorded signals in delivery order.
func (r *RecordingConsumer[T]) Signals() []flow.Signal[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]flow.Signal[T], len(r.signals))
	copy(out, r.signals)
	return out
}

// Items returns the recorded item payloads in delivery order.
func (r *RecordingConsumer[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []T
	for _, sig := range r.signals {
		if sig.Kind == flow.KindItem {
			items = append(items, sig.Item)
		}
	}
	return items
}

// TerminalError returns the recorded terminal error, or nil if the recorder
// has not received an error signal.
func (r *RecordingConsumer[T]) TerminalError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sig := range r.signals {
		if sig.Kind == flow.KindError {
			return sig.Err
		}
	}
	return nil
}

// Completed reports whether a completion signal was recorded.
func (r *RecordingConsumer[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sig := range r.signals {
		if sig.Kind == flow.KindComplete {
			return true
		}
	}
	return false
}

// Terminated reports whether any terminal signal was recorded.
func (r *RecordingConsumer[T]) Terminated() bool {
	select {
	case <-r.terminal:
		return true
	default:
		return false
	}
}

// WaitTerminal blocks until a terminal signal arrives or the timeout lapses.
func (r *RecordingConsumer[T]) WaitTerminal(timeout time.Duration) error {
	select {
	case <-r.terminal:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("testutil: no terminal signal within %v", timeout)
	}
}
