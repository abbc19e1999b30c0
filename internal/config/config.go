package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/flowmesh/mockgps/internal/logger"
	"github.com/flowmesh/mockgps/internal/storage/cursor"
	"github.com/flowmesh/mockgps/internal/tracing"
)

// Config represents the application configuration
type Config struct {
	// Track replay configuration
	Track TrackConfig `env:"TRACK" yaml:"track"`

	// Cursor persistence configuration
	Cursor CursorConfig `env:"CURSOR" yaml:"cursor"`

	// Logging configuration
	Logging LoggingConfig `env:"LOGGING" yaml:"logging"`

	// Metrics configuration
	Metrics MetricsConfig `env:"METRICS" yaml:"metrics"`

	// Tracing configuration
	Tracing TracingConfig `env:"TRACING" yaml:"tracing"`

	// Configuration file path
	ConfigFile string `env:"MOCKGPS_CONFIG_FILE" yaml:"-"`

	// Reset clears the persisted cursor before replaying
	Reset bool `env:"MOCKGPS_RESET" yaml:"-"`

	// ShowVersion prints build information and exits
	ShowVersion bool `env:"-" yaml:"-"`
}

// TrackConfig holds replay-related configuration
type TrackConfig struct {
	// Path of the coordinate file
	File string `env:"MOCKGPS_TRACK_FILE" yaml:"file"`

	// Name keys the persisted cursor; defaults to the file name without extension
	Name string `env:"MOCKGPS_TRACK_NAME" yaml:"name"`

	// StartIndex overrides the persisted cursor when >= 0
	StartIndex int `env:"MOCKGPS_START_INDEX" envDefault:"-1" yaml:"start_index"`

	// Delay between emitted locations; zero uses the replay default
	Delay time.Duration `env:"MOCKGPS_DELAY" envDefault:"200ms" yaml:"delay"`
}

// CursorConfig holds cursor storage configuration
type CursorConfig struct {
	// Backend: "pebble", "sqlite", "file", "memory"
	Backend string `env:"MOCKGPS_CURSOR_BACKEND" envDefault:"pebble" yaml:"backend"`

	// Data directory path
	DataDir string `env:"MOCKGPS_DATA_DIR" envDefault:"./data" yaml:"data_dir"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	// Log level: "debug", "info", "warn", "error"
	Level string `env:"LOG_LEVEL" envDefault:"info" yaml:"level"`

	// Log format: "json", "text"
	Format string `env:"LOG_FORMAT" envDefault:"json" yaml:"format"`

	// Log destination: "stderr", "stdout" or a file path. Location updates own stdout.
	Output string `env:"LOG_OUTPUT" envDefault:"stderr" yaml:"output"`

	// Enable log rotation
	Rotation bool `env:"LOG_ROTATION" envDefault:"true" yaml:"rotation"`

	// Max log file size in MB
	MaxSize int `env:"LOG_MAX_SIZE" envDefault:"100" yaml:"max_size"`

	// Number of backup files to keep
	MaxBackups int `env:"LOG_MAX_BACKUPS" envDefault:"7" yaml:"max_backups"`

	// Max age in days
	MaxAge int `env:"LOG_MAX_AGE" envDefault:"30" yaml:"max_age"`
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	// Enable the Prometheus endpoint
	Enabled bool `env:"METRICS_ENABLED" envDefault:"false" yaml:"enabled"`

	// Metrics server address
	Addr string `env:"METRICS_ADDR" envDefault:":9090" yaml:"addr"`

	// Metrics path
	Path string `env:"METRICS_PATH" envDefault:"/metrics" yaml:"path"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled bool `env:"TRACING_ENABLED" envDefault:"false" yaml:"enabled"`

	// OTLP endpoint (host:port)
	Endpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4317" yaml:"endpoint"`

	// Exporter: "grpc", "http"
	Exporter string `env:"TRACING_EXPORTER" envDefault:"grpc" yaml:"exporter"`

	Insecure bool `env:"TRACING_INSECURE" envDefault:"true" yaml:"insecure"`

	// Fraction of sessions traced
	SampleRatio float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1.0" yaml:"sample_ratio"`
}

// Load loads configuration from multiple sources, later ones winning:
// 1. Default values
// 2. Environment variables
// 3. Configuration file (YAML)
// 4. Command line flags
func Load(args []string) (*Config, error) {
	cfg := &Config{}

	// Load from environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	fs := newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load from config file if specified, then let flags win again
	if cfg.ConfigFile != "" {
		if err := loadFromFile(cfg, cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	if cfg.ShowVersion {
		return cfg, nil
	}

	// Normalize paths
	cfg.Cursor.DataDir = filepath.Clean(cfg.Cursor.DataDir)
	if cfg.Track.File != "" {
		cfg.Track.File = filepath.Clean(cfg.Track.File)
	}
	if cfg.Track.Name == "" {
		cfg.Track.Name = trackName(cfg.Track.File)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("mockgps", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Path to YAML configuration file")
	fs.StringVar(&cfg.Track.File, "track", cfg.Track.File, "Path to the coordinate file")
	fs.StringVar(&cfg.Track.Name, "name", cfg.Track.Name, "Track name used to key the cursor")
	fs.IntVar(&cfg.Track.StartIndex, "start", cfg.Track.StartIndex, "Start line index (-1 resumes from the saved cursor)")
	fs.DurationVar(&cfg.Track.Delay, "delay", cfg.Track.Delay, "Delay between emitted locations")
	fs.StringVar(&cfg.Cursor.Backend, "cursor-backend", cfg.Cursor.Backend, "Cursor backend (pebble, sqlite, file, memory)")
	fs.StringVar(&cfg.Cursor.DataDir, "data-dir", cfg.Cursor.DataDir, "Data directory path")
	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "Log format (json, text)")
	fs.BoolVar(&cfg.Metrics.Enabled, "metrics", cfg.Metrics.Enabled, "Serve Prometheus metrics")
	fs.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "Metrics server address")
	fs.BoolVar(&cfg.Reset, "reset", cfg.Reset, "Clear the saved cursor before replaying")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")
	return fs
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Track.File == "" {
		return fmt.Errorf("track file cannot be empty")
	}

	if c.Track.Name == "" {
		return fmt.Errorf("track name cannot be empty")
	}

	if c.Track.Delay < 0 {
		return fmt.Errorf("delay cannot be negative: %s", c.Track.Delay)
	}

	if c.Track.StartIndex < -1 {
		return fmt.Errorf("invalid start index: %d", c.Track.StartIndex)
	}

	validBackends := map[string]bool{
		cursor.BackendPebble: true,
		cursor.BackendSQLite: true,
		cursor.BackendFile:   true,
		cursor.BackendMemory: true,
	}
	if !validBackends[strings.ToLower(c.Cursor.Backend)] {
		return fmt.Errorf("invalid cursor backend: %s", c.Cursor.Backend)
	}

	if c.Cursor.DataDir == "" && !strings.EqualFold(c.Cursor.Backend, cursor.BackendMemory) {
		return fmt.Errorf("data directory cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("invalid metrics path: %s", c.Metrics.Path)
		}
	}

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing endpoint is required when tracing is enabled")
		}
		if c.Tracing.Exporter != "grpc" && c.Tracing.Exporter != "http" {
			return fmt.Errorf("invalid tracing exporter: %s", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing sample ratio must be between 0 and 1: %v", c.Tracing.SampleRatio)
		}
	}

	return nil
}

// StartIndex returns the explicit start index, or nil to resume from the cursor
func (c *Config) StartIndex() *int {
	if c.Track.StartIndex < 0 {
		return nil
	}
	index := c.Track.StartIndex
	return &index
}

// LoggerConfig converts the logging section for logger.Init
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Output:     c.Logging.Output,
		Rotation:   c.Logging.Rotation,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}

// CursorConfig converts the cursor section for cursor.Open
func (c *Config) CursorConfig() cursor.Config {
	return cursor.Config{
		Backend: c.Cursor.Backend,
		DataDir: c.Cursor.DataDir,
	}
}

// TracingConfig converts the tracing section for tracing.NewProvider
func (c *Config) TracingConfig(version string) tracing.TracingConfig {
	tc := tracing.DefaultTracingConfig()
	tc.Enabled = c.Tracing.Enabled
	tc.Endpoint = c.Tracing.Endpoint
	tc.ExporterType = c.Tracing.Exporter
	tc.Insecure = c.Tracing.Insecure
	if version != "" {
		tc.ServiceVersion = version
	}
	if c.Tracing.SampleRatio < 1 {
		tc.SamplingStrategy = "ratio"
		tc.SamplingRatio = c.Tracing.SampleRatio
	}
	return tc
}

// loadFromFile overlays the keys present in a YAML file
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func trackName(file string) string {
	if file == "" {
		return ""
	}
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
