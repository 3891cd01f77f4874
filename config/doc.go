// Package config loads and validates the YAML configuration of a streamkit
// process: structured logging, the Prometheus metric registry, and the
// defaults applied when building subscription chains.
//
// A minimal file:
//
//	logging:
//	  level: info
//	  format: text
//	metrics:
//	  enabled: true
//	  namespace: streamkit
//	flow:
//	  default_concurrency: 0
//	  default_prefetch: 32
//	  default_buffer_capacity: 256
//
// Omitted fields keep the defaults from Default(). Load rejects files over
// 1 MiB and values no component could honor.
package config
