package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamkit/errors"
)

func newCounter(name string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: "test counter",
	})
}

func TestRegisterCounter(t *testing.T) {
	registry := NewRegistry()

	err := registry.RegisterCounter("buffer", "drops_total", newCounter("buffer_drops_total"))
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Registered())
}

func TestRegisterDuplicateRejected(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.RegisterCounter("buffer", "drops_total", newCounter("buffer_drops_total")))

	err := registry.RegisterCounter("buffer", "drops_total", newCounter("buffer_drops_total_2"))
	require.Error(t, err)
	assert.True(t, errors.IsMisuse(err))
	assert.Equal(t, 1, registry.Registered())
}

func TestRegisterGauge(t *testing.T) {
	registry := NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "buffer_size",
		Help: "test gauge",
	})
	require.NoError(t, registry.RegisterGauge("buffer", "size", gauge))
}

func TestRegisterCounterVec(t *testing.T) {
	registry := NewRegistry()

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signals_total",
		Help: "test counter vec",
	}, []string{"kind"})
	require.NoError(t, registry.RegisterCounterVec("subscription", "signals_total", vec))
}

func TestUnregister(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.RegisterCounter("buffer", "drops_total", newCounter("buffer_drops_total")))
	assert.True(t, registry.Unregister("buffer", "drops_total"))
	assert.False(t, registry.Unregister("buffer", "drops_total"))
	assert.Equal(t, 0, registry.Registered())

	// Re-registration after unregister succeeds
	require.NoError(t, registry.RegisterCounter("buffer", "drops_total", newCounter("buffer_drops_total")))
}

func TestRegistrarInterface(t *testing.T) {
	var _ Registrar = NewRegistry()
}
