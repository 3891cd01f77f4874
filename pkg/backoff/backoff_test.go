package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayGrowsExponentially(t *testing.T) {
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		AddJitter:    false,
	}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(3))
	assert.Equal(t, 800*time.Millisecond, cfg.Delay(4))
}

func TestDelaySaturatesAtMaxDelay(t *testing.T) {
	cfg := Config{
		MaxAttempts:  20,
		InitialDelay: time.Second,
		MaxDelay:     3 * time.Second,
		Multiplier:   2.0,
		AddJitter:    false,
	}

	assert.Equal(t, 3*time.Second, cfg.Delay(3))
	assert.Equal(t, 3*time.Second, cfg.Delay(19))
}

func TestDelayJitterBounded(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}

	for i := 0; i < 100; i++ {
		d := cfg.Delay(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 125*time.Millisecond)
	}
}

func TestDelayClampsDegenerateInput(t *testing.T) {
	var cfg Config // zero value

	d := cfg.Delay(0)
	assert.Greater(t, d, time.Duration(0))

	d = cfg.Delay(-5)
	assert.Greater(t, d, time.Duration(0))
}

func TestDelayMaxBelowInitialClamped(t *testing.T) {
	cfg := Config{
		InitialDelay: time.Second,
		MaxDelay:     time.Millisecond,
		Multiplier:   2.0,
	}

	// MaxDelay below InitialDelay is raised to InitialDelay
	assert.Equal(t, time.Second, cfg.Delay(1))
}

func TestAttempts(t *testing.T) {
	assert.Equal(t, 1, Config{}.Attempts())
	assert.Equal(t, 3, DefaultConfig().Attempts())
	assert.Equal(t, 10, Quick().Attempts())
	assert.Equal(t, 30, Persistent().Attempts())
}
