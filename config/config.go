package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/streamkit/flow"
)

// maxConfigSize caps config files at 1 MiB to reject runaway input.
const maxConfigSize = 1 << 20

// Config is the complete application configuration for a streamkit process.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Flow    FlowConfig    `yaml:"flow"`
}

// LoggingConfig controls the process-wide structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// MetricsConfig controls the Prometheus metric registry.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// FlowConfig carries the defaults applied when building subscription chains.
type FlowConfig struct {
	// DefaultConcurrency bounds concurrent inner subscriptions in merge
	// operators. Zero means unlimited.
	DefaultConcurrency int `yaml:"default_concurrency"`

	// DefaultPrefetch is the per-inner-subscription demand merge operators
	// keep outstanding.
	DefaultPrefetch int `yaml:"default_prefetch"`

	// DefaultBufferCapacity bounds the Buffer and Drop overflow strategies.
	DefaultBufferCapacity int `yaml:"default_buffer_capacity"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Enabled: true, Namespace: "streamkit"},
		Flow: FlowConfig{
			DefaultPrefetch:       flow.DefaultPrefetch,
			DefaultBufferCapacity: flow.DefaultOverflowCapacity,
		},
	}
}

// Load reads, parses, and validates a YAML configuration file. Fields the
// file omits keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("config.Load: read config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("config.Load: config file exceeds %d bytes", maxConfigSize)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no component could honor.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", c.Logging.Format)
	}
	if c.Flow.DefaultConcurrency < 0 {
		return fmt.Errorf("flow.default_concurrency %d is negative", c.Flow.DefaultConcurrency)
	}
	if c.Flow.DefaultPrefetch <= 0 {
		return fmt.Errorf("flow.default_prefetch %d must be positive", c.Flow.DefaultPrefetch)
	}
	if c.Flow.DefaultBufferCapacity <= 0 {
		return fmt.Errorf("flow.default_buffer_capacity %d must be positive", c.Flow.DefaultBufferCapacity)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}
	return nil
}

// Logger builds the process-wide structured logger described by the
// logging section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.logLevel()}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c *Config) logLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
