// Package config provides the configuration system for the IQC dashboard.
// A single Config structure holds every setting, organized into sections:
//   - Data: working directory for uploads and the initial source file globs
//   - Engine: columnar engine settings (parquet batch size, memory mapping)
//   - Viewer: 3D structure viewer settings
//   - Server: HTTP presentation settings
//   - Logging, Metrics and Tracing: observability
//
// Example usage:
//
//	cfg, err := config.Load("iqcdash.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Server.Addr = ":9000"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the unified dashboard configuration.
type Config struct {
	// Data settings control where source files come from
	Data DataConfig `yaml:"data" json:"data" mapstructure:"data"`

	// Engine settings for the columnar store connector
	Engine EngineConfig `yaml:"engine" json:"engine" mapstructure:"engine"`

	// Viewer settings for the structure renderer
	Viewer ViewerConfig `yaml:"viewer" json:"viewer" mapstructure:"viewer"`

	// Server settings for the HTTP surface
	Server ServerConfig `yaml:"server" json:"server" mapstructure:"server"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Metrics settings
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Tracing settings
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`
}

// DataConfig contains source file settings.
type DataConfig struct {
	// WorkDir receives materialized uploads
	WorkDir string `yaml:"work_dir" json:"work_dir" mapstructure:"work_dir"`
	// Paths lists parquet files or glob patterns loaded at startup
	Paths []string `yaml:"paths" json:"paths" mapstructure:"paths"`
}

// EngineConfig contains columnar engine settings.
type EngineConfig struct {
	// BatchSize is the number of parquet rows decoded per record batch
	BatchSize int `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	// MemoryMap opens parquet files through mmap
	MemoryMap bool `yaml:"memory_map" json:"memory_map" mapstructure:"memory_map"`
	// DSN is the sqlite data source name backing the engine
	DSN string `yaml:"dsn" json:"dsn" mapstructure:"dsn"`
}

// ViewerConfig contains 3D viewer settings.
type ViewerConfig struct {
	// Enabled turns the 3D viewer on
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// ScriptURL locates 3Dmol.js, either an http(s) URL or a local file
	ScriptURL string `yaml:"script_url" json:"script_url" mapstructure:"script_url"`
	// Width of the viewer in pixels
	Width int `yaml:"width" json:"width" mapstructure:"width"`
	// Height of the viewer in pixels
	Height int `yaml:"height" json:"height" mapstructure:"height"`
	// DefaultStyle is used when a request names no style
	DefaultStyle string `yaml:"default_style" json:"default_style" mapstructure:"default_style"`
}

// ServerConfig contains HTTP settings.
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr" json:"addr" mapstructure:"addr"`
	// ReadTimeout for incoming requests
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout for responses
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
	// CompressMinBytes is the smallest response body that is gzip encoded
	CompressMinBytes int `yaml:"compress_min_bytes" json:"compress_min_bytes" mapstructure:"compress_min_bytes"`
	// MaxUploadMB caps a multipart upload
	MaxUploadMB int64 `yaml:"max_upload_mb" json:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Development switches to colored console-friendly output
	Development bool `yaml:"development" json:"development" mapstructure:"development"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
}

// MetricsConfig contains prometheus settings.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// Path of the metrics endpoint
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// Exporter is stdout or none
	Exporter     string        `yaml:"exporter" json:"exporter" mapstructure:"exporter"`
	SamplingRate float64       `yaml:"sampling_rate" json:"sampling_rate" mapstructure:"sampling_rate"`
	ServiceName  string        `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout" mapstructure:"batch_timeout"`
}

// NewConfig creates a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Data: DataConfig{
			WorkDir: filepath.Join(os.TempDir(), "iqc-dashboard"),
		},
		Engine: EngineConfig{
			BatchSize: 4096,
			MemoryMap: false,
			DSN:       ":memory:",
		},
		Viewer: ViewerConfig{
			Enabled:      true,
			ScriptURL:    "https://3Dmol.org/build/3Dmol-min.js",
			Width:        400,
			Height:       400,
			DefaultStyle: "stick",
		},
		Server: ServerConfig{
			Addr:             ":8501",
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			MaxUploadMB:      200,
			CompressMinBytes: 1024,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
			ServiceName:  "iqc-dashboard",
			BatchTimeout: 5 * time.Second,
		},
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Data.WorkDir == "" {
		return fmt.Errorf("data.work_dir is required")
	}
	if c.Engine.BatchSize <= 0 {
		return fmt.Errorf("engine.batch_size must be positive")
	}
	if c.Engine.DSN == "" {
		return fmt.Errorf("engine.dsn is required")
	}
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("viewer width and height must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	if c.Server.CompressMinBytes < 0 {
		return fmt.Errorf("server.compress_min_bytes must not be negative")
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("logging.encoding must be json or console, got %q", c.Logging.Encoding)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing.sampling_rate must be within [0, 1]")
	}
	switch c.Tracing.Exporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("tracing.exporter must be stdout or none, got %q", c.Tracing.Exporter)
	}
	return nil
}

// MaxUploadBytes returns the upload cap in bytes
func (s *ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}
