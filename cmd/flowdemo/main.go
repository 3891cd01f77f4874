// Package main implements flowdemo, a small pipeline showcasing the
// streamkit protocol: a timed source absorbed by a backpressure buffer,
// transformed and flattened through the core operators, and drained by a
// demand-paced subscriber.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/streamkit/config"
	"github.com/c360/streamkit/metric"
)

const (
	Version = "0.1.0"
	appName = "flowdemo"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	if flags.showVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}

	cfg := config.Default()
	if flags.configPath != "" {
		cfg, err = config.Load(flags.configPath)
		if err != nil {
			return err
		}
	}
	logger := cfg.Logger(os.Stderr)

	var registry *metric.Registry
	if cfg.Metrics.Enabled {
		registry = metric.NewRegistry()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("starting pipeline",
		"version", Version,
		"duration", flags.duration,
		"tick", flags.tick)

	return runPipeline(cfg, logger, registry, flags, stop)
}
