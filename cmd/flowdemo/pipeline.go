package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/c360/streamkit/config"
	"github.com/c360/streamkit/flow"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/pkg/backoff"
)

// reading is the demo's item type: a sequence number decorated with a
// synthetic measurement.
type reading struct {
	Seq   int64
	Value int64
}

// runPipeline assembles and runs the demo chain:
//
//	Interval -> OnBackpressure(Drop) -> Map -> Filter -> FlatMap -> Throttle
//
// wrapped in Retry, drained by a demand-paced subscriber until the duration
// lapses or a shutdown signal arrives.
func runPipeline(cfg *config.Config, logger *slog.Logger, registry *metric.Registry, flags cliFlags, stop <-chan os.Signal) error {
	processed, dropped, err := pipelineCounters(cfg, registry)
	if err != nil {
		return err
	}

	sched := flow.TimerScheduler{}

	source := flow.OnBackpressure(
		flow.Interval(sched, flags.tick),
		flow.OverflowDrop,
		flow.WithCapacity[int64](cfg.Flow.DefaultBufferCapacity),
		flow.WithDropHandler(func(int64) {
			if dropped != nil {
				dropped.Inc()
			}
		}),
		flow.WithBufferMetrics[int64](registry, "source"),
		flow.WithOverflowLogger[int64](logger),
	)

	readings := flow.Map(source, func(seq int64) (reading, error) {
		return reading{Seq: seq, Value: seq * seq % 97}, nil
	})

	filtered := flow.Filter(readings, func(r reading) bool {
		return r.Value%2 == 0
	})

	mergeOpts := []flow.MergeOption{flow.WithPrefetch(cfg.Flow.DefaultPrefetch)}
	if cfg.Flow.DefaultConcurrency > 0 {
		mergeOpts = append(mergeOpts, flow.WithConcurrency(cfg.Flow.DefaultConcurrency))
	}
	enriched := flow.FlatMap(filtered, func(r reading) flow.Producer[string] {
		return flow.Just(
			fmt.Sprintf("reading %d raw=%d", r.Seq, r.Value),
			fmt.Sprintf("reading %d scaled=%d", r.Seq, r.Value*10),
		)
	}, mergeOpts...)

	limiter := rate.NewLimiter(rate.Every(flags.tick/4), 8)
	limited := flow.Throttle(enriched, limiter, flow.WithThrottleLogger[string](logger))

	resilient := flow.Retry(limited, sched, backoff.DefaultConfig())

	done := make(chan error, 1)
	handle := flow.Subscribe(resilient, flow.Callbacks[string]{
		OnItem: func(line string) {
			if processed != nil {
				processed.Inc()
			}
			logger.Info("item", "line", line)
		},
		OnError: func(err error) {
			done <- err
		},
		OnComplete: func() {
			done <- nil
		},
		Finally: func() {
			logger.Debug("subscription finished")
		},
		Logger: logger,
	})
	defer handle.Dispose()

	select {
	case err := <-done:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		return nil
	case <-time.After(flags.duration):
		logger.Info("duration elapsed, shutting down")
		return nil
	}
}

// pipelineCounters registers the demo's throughput counters. A nil registry
// disables them.
func pipelineCounters(cfg *config.Config, registry *metric.Registry) (processed, dropped prometheus.Counter, err error) {
	if registry == nil {
		return nil, nil, nil
	}
	processed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Metrics.Namespace,
		Subsystem: appName,
		Name:      "items_processed_total",
		Help:      "Items delivered to the demo subscriber.",
	})
	if err := registry.RegisterCounter(appName, "items_processed_total", processed); err != nil {
		return nil, nil, err
	}
	dropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Metrics.Namespace,
		Subsystem: appName,
		Name:      "items_dropped_total",
		Help:      "Source ticks dropped by the backpressure buffer.",
	})
	if err := registry.RegisterCounter(appName, "items_dropped_total", dropped); err != nil {
		return nil, nil, err
	}
	return processed, dropped, nil
}
