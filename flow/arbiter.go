package flow

import "sync"

// demandArbiter tracks outstanding downstream demand across a succession of
// upstream tokens, so demand left unmet by one upstream carries over to its
// successor. Sequential flattening, error resumption, and retry all hand the
// downstream consumer a single stable token backed by an arbiter while the
// live upstream changes underneath it.
type demandArbiter struct {
	mu        sync.Mutex
	requested int64
	current   FlowToken
	cancelled bool
}

// setToken installs the live upstream token and replays any outstanding
// demand to it. If the arbiter was cancelled, the new token is cancelled
// immediately.
func (a *demandArbiter) setToken(token FlowToken) {
	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		token.Cancel()
		return
	}
	a.current = token
	outstanding := a.requested
	a.mu.Unlock()

	if outstanding > 0 {
		token.Request(outstanding)
	}
}

// request records n additional units of downstream demand and forwards them
// to the live upstream, if any. Callers validate n > 0.
func (a *demandArbiter) request(n int64) {
	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		return
	}
	a.requested = satAdd(a.requested, n)
	token := a.current
	a.mu.Unlock()

	if token != nil {
		token.Request(n)
	}
}

// produced records one item delivered downstream, consuming one unit of
// outstanding demand.
func (a *demandArbiter) produced() {
	a.mu.Lock()
	if a.requested != Unbounded && a.requested > 0 {
		a.requested--
	}
	a.mu.Unlock()
}

// cancel cancels the live upstream and suppresses all future ones.
func (a *demandArbiter) cancel() {
	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		return
	}
	a.cancelled = true
	token := a.current
	a.current = nil
	a.mu.Unlock()

	if token != nil {
		token.Cancel()
	}
}

// clearToken detaches the live upstream without cancelling, used when an
// upstream terminates and a successor has not attached yet.
func (a *demandArbiter) clearToken() {
	a.mu.Lock()
	a.current = nil
	a.mu.Unlock()
}
