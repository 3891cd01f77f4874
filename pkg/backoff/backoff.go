// Package backoff provides exponential backoff delay computation for
// resubscription and other deferred-retry scenarios.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config provides backoff configuration. Unlike an in-place retry loop, the
// caller owns scheduling: Delay reports how long to wait before a given
// attempt and the caller defers the work, typically through a flow.Scheduler.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts (0 = run once, no retry)
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Ceiling for computed delays
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add up to 25% randomness to prevent thundering herd
}

// DefaultConfig returns sensible defaults for resubscription backoff.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Quick returns a config for fast retries.
func Quick() Config {
	return Config{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}

// Persistent returns a config for long-running retries against critical
// upstream sources.
func Persistent() Config {
	return Config{
		MaxAttempts:  30,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// normalized returns a copy of the config with defaults filled in and
// degenerate values clamped.
func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
	if c.Multiplier > 1000 {
		c.Multiplier = 1000
	}
	return c
}

// Attempts returns the total number of attempts the config allows,
// normalizing degenerate values to at least one.
func (c Config) Attempts() int {
	return c.normalized().MaxAttempts
}

// Delay returns the wait before retry attempt number attempt (1-based: the
// delay before the first retry is Delay(1)). Delays grow by Multiplier per
// attempt, saturate at MaxDelay, and optionally carry up to 25% jitter.
func (c Config) Delay(attempt int) time.Duration {
	cfg := c.normalized()

	if attempt < 1 {
		attempt = 1
	}

	delay := float64(cfg.InitialDelay)
	ceiling := float64(cfg.MaxDelay)
	for i := 1; i < attempt; i++ {
		delay *= cfg.Multiplier
		if delay >= ceiling {
			delay = ceiling
			break
		}
	}

	d := time.Duration(delay)
	if d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}

	if cfg.AddJitter && d >= 4 {
		randMu.Lock()
		jitter := time.Duration(randSource.Int63n(int64(d / 4)))
		randMu.Unlock()
		d += jitter
	}

	return d
}
