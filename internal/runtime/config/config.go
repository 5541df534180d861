package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
)

// Environment variables read by Load.
const (
	EnvLogLevel       = "GLOMERS_LOG_LEVEL"
	EnvLogFormat      = "GLOMERS_LOG_FORMAT"
	EnvRecordFile     = "GLOMERS_RECORD_FILE"
	EnvMetricsEnabled = "GLOMERS_METRICS_ENABLED"
	EnvMetricsAddr    = "GLOMERS_METRICS_ADDR"
	EnvTracingEnabled = "GLOMERS_TRACING_ENABLED"
	EnvIDStrategy     = "GLOMERS_ID_STRATEGY"
)

// Unique id strategies understood by the unique-ids node.
const (
	IDStrategyCounter = "counter"
	IDStrategyULID    = "ulid"
)

// Config groups the ambient settings of a node process. None of them change the
// protocol itself; stdin and stdout stay the only transport.
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string
	// LogFormat is "text" or "json". Logs are written to stderr.
	LogFormat string

	// RecordFile, when set, receives a JSON line for every inbound and outbound
	// protocol line. Useful to replay a Maelstrom run offline.
	RecordFile string

	// MetricsEnabled turns on dispatch counters and histograms.
	MetricsEnabled bool
	// MetricsAddr optionally exposes /metrics on this address (for example ":9090").
	MetricsAddr string

	// TracingEnabled wraps every dispatch in an OpenTelemetry span.
	TracingEnabled bool

	// IDStrategy selects how the unique-ids node mints identifiers.
	IDStrategy string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		LogFormat:  "text",
		IDStrategy: IDStrategyCounter,
	}
}

// Load reads an optional .env file from the working directory and then the
// GLOMERS_* environment variables on top of Default. A missing .env is fine; an
// unreadable or malformed one is an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup to resolve environment variables.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	var errs []error

	if v, ok := lookup(EnvLogLevel); ok {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogFormat); ok {
		cfg.LogFormat = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvRecordFile); ok {
		cfg.RecordFile = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvIDStrategy); ok {
		cfg.IDStrategy = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvMetricsEnabled); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvMetricsEnabled, err))
		}
		cfg.MetricsEnabled = b
	}
	if v, ok := lookup(EnvTracingEnabled); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvTracingEnabled, err))
		}
		cfg.TracingEnabled = b
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) String() string {
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(c))
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateMetrics()...)
	errs = append(errs, c.validateIDStrategy()...)

	return errors.Join(errs...)
}

func (c *Config) validateLogging() []error {
	var errs []error
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.LogFormat))
	}
	return errs
}

func (c *Config) validateMetrics() []error {
	if c.MetricsAddr == "" {
		return nil
	}
	var errs []error
	if !c.MetricsEnabled {
		errs = append(errs, errors.New("metrics: address set but metrics disabled"))
	}
	_, port, err := net.SplitHostPort(c.MetricsAddr)
	if err != nil {
		return append(errs, fmt.Errorf("metrics: invalid address %q: %w", c.MetricsAddr, err))
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %q", port))
	}
	return errs
}

func (c *Config) validateIDStrategy() []error {
	switch c.IDStrategy {
	case "", IDStrategyCounter, IDStrategyULID:
		return nil
	default:
		return []error{fmt.Errorf("ids: unknown strategy %q", c.IDStrategy)}
	}
}

// ValidateConfig is a convenience function to validate a config pointer.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errspkg.ErrConfigRequired
	}
	return c.Validate()
}
