// Package metric provides a Prometheus metrics registry for streamkit
// components.
//
// Instrumented components (overflow buffers, long-lived subscriptions)
// register their collectors under a "component.metric" key, which guards
// against duplicate registration and allows clean unregistration when a
// component is disposed.
//
// # Usage
//
//	registry := metric.NewRegistry()
//
//	drops := prometheus.NewCounter(prometheus.CounterOpts{
//		Name: "ingest_buffer_drops_total",
//		Help: "Items dropped by the ingest overflow buffer",
//	})
//	if err := registry.RegisterCounter("ingest_buffer", "drops_total", drops); err != nil {
//		return err
//	}
//
// The underlying prometheus.Registry is available via PrometheusRegistry()
// for exposition by the embedding application; streamkit itself serves no
// HTTP endpoints.
package metric
