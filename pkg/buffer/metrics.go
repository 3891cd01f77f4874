package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/streamkit/metric"
)

// ringMetrics exposes buffer statistics as Prometheus metrics.
type ringMetrics struct {
	size      prometheus.Gauge
	writes    prometheus.Counter
	reads     prometheus.Counter
	overflows prometheus.Counter
	drops     prometheus.Counter
}

func newRingMetrics(registry *metric.Registry, prefix string) (*ringMetrics, error) {
	m := &ringMetrics{
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_buffer_size",
			Help: "Current number of buffered items",
		}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_buffer_writes_total",
			Help: "Total items written to the buffer",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_buffer_reads_total",
			Help: "Total items read from the buffer",
		}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_buffer_overflows_total",
			Help: "Total capacity-exceeded events",
		}),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_buffer_drops_total",
			Help: "Total items discarded by a drop policy",
		}),
	}

	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_writes_total", m.writes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_reads_total", m.reads); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_overflows_total", m.overflows); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_drops_total", m.drops); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *ringMetrics) recordWrite(size int) {
	m.writes.Inc()
	m.size.Set(float64(size))
}

func (m *ringMetrics) recordRead(size int) {
	m.reads.Inc()
	m.size.Set(float64(size))
}

func (m *ringMetrics) recordOverflow() { m.overflows.Inc() }

func (m *ringMetrics) recordDrop() { m.drops.Inc() }

func (m *ringMetrics) updateSize(size int) { m.size.Set(float64(size)) }
