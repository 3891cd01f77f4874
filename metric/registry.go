package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/streamkit/errors"
)

// Registrar defines the interface for registering component-specific metrics
type Registrar interface {
	RegisterCounter(component, metricName string, counter prometheus.Counter) error
	RegisterGauge(component, metricName string, gauge prometheus.Gauge) error
	RegisterCounterVec(component, metricName string, counterVec *prometheus.CounterVec) error
	Unregister(component, metricName string) bool
}

// Registry manages the registration and lifecycle of metrics for streamkit
// components. Buffers and long-lived subscriptions expose their statistics
// through it when metrics are enabled.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a new metrics registry backed by a dedicated
// Prometheus registry.
func NewRegistry() *Registry {
	return &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		registeredMetrics:  make(map[string]prometheus.Collector),
	}
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// RegisterCounter registers a counter metric for a component
func (r *Registry) RegisterCounter(component, metricName string, counter prometheus.Counter) error {
	return r.register(component, metricName, counter, "RegisterCounter")
}

// RegisterGauge registers a gauge metric for a component
func (r *Registry) RegisterGauge(component, metricName string, gauge prometheus.Gauge) error {
	return r.register(component, metricName, gauge, "RegisterGauge")
}

// RegisterCounterVec registers a labeled counter metric for a component
func (r *Registry) RegisterCounterVec(component, metricName string, counterVec *prometheus.CounterVec) error {
	return r.register(component, metricName, counterVec, "RegisterCounterVec")
}

// register adds a collector under "component.metricName", rejecting duplicates.
func (r *Registry) register(component, metricName string, collector prometheus.Collector, operation string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, metricName)

	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapMisuse(
			fmt.Errorf("metric %s already registered for component %s", metricName, component),
			"Registry", operation, "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapMisuse(err, "Registry", operation, "duplicate prometheus registration")
		}
		return errors.Wrap(err, "Registry", operation, "prometheus registration")
	}

	r.registeredMetrics[key] = collector
	return nil
}

// Unregister removes a metric for a component. Returns true if the metric
// was found and removed.
func (r *Registry) Unregister(component, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, metricName)

	collector, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}

	r.prometheusRegistry.Unregister(collector)
	delete(r.registeredMetrics, key)
	return true
}

// Registered returns the number of metrics currently registered.
func (r *Registry) Registered() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registeredMetrics)
}
