// Package config provides configuration management for dtriage.
package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DTRIAGE_INGEST_WORKERS.
const EnvPrefix = "DTRIAGE"

// Config holds all configuration for the application.
type Config struct {
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
	Output    OutputConfig    `mapstructure:"output"`
	Log       LogConfig       `mapstructure:"log"`
}

// IngestConfig holds manifest build configuration.
type IngestConfig struct {
	MaxFileBytes         int64    `mapstructure:"max_file_bytes"`
	AcceptedContentTypes []string `mapstructure:"accepted_content_types"`
	Workers              int      `mapstructure:"workers"`
	DeepParse            bool     `mapstructure:"deep_parse"`
}

// ArchiveConfig holds container extraction configuration.
type ArchiveConfig struct {
	MaxEntryBytes int64 `mapstructure:"max_entry_bytes"` // 0 disables the cap
	Buffer        int   `mapstructure:"buffer"`
	ProgressEvery int   `mapstructure:"progress_every"`
	Concurrency   int   `mapstructure:"concurrency"`
}

// ThumbnailConfig holds thumbnail rendering configuration.
type ThumbnailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Size    int    `mapstructure:"size"`
	Dir     string `mapstructure:"dir"`
}

// OutputConfig holds report output configuration.
type OutputConfig struct {
	Format      string `mapstructure:"format"`      // json or table
	Compression string `mapstructure:"compression"` // none, gzip or zstd
	Path        string `mapstructure:"path"`        // empty writes to stdout
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// Load reads configuration from the specified file path. A missing file
// leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("dtriage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/dtriage")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromReader loads configuration from content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decode(v)
}

// Default returns the default configuration.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Ingest defaults
	v.SetDefault("ingest.max_file_bytes", int64(100<<20))
	v.SetDefault("ingest.accepted_content_types", []string{"", "application/dicom", "application/octet-stream"})
	v.SetDefault("ingest.workers", runtime.NumCPU())
	v.SetDefault("ingest.deep_parse", true)

	// Archive defaults
	v.SetDefault("archive.max_entry_bytes", 0)
	v.SetDefault("archive.buffer", 16)
	v.SetDefault("archive.progress_every", 16)
	v.SetDefault("archive.concurrency", 2)

	// Thumbnail defaults
	v.SetDefault("thumbnail.enabled", false)
	v.SetDefault("thumbnail.size", 64)
	v.SetDefault("thumbnail.dir", "./thumbnails")

	// Output defaults
	v.SetDefault("output.format", "json")
	v.SetDefault("output.compression", "none")
	v.SetDefault("output.path", "")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ingest.MaxFileBytes <= 0 {
		return fmt.Errorf("ingest max_file_bytes must be positive")
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest workers must be at least 1")
	}
	if c.Archive.MaxEntryBytes < 0 {
		return fmt.Errorf("archive max_entry_bytes must not be negative")
	}
	if c.Archive.Buffer < 1 {
		return fmt.Errorf("archive buffer must be at least 1")
	}
	if c.Archive.Concurrency < 1 {
		return fmt.Errorf("archive concurrency must be at least 1")
	}
	if c.Thumbnail.Size < 1 || c.Thumbnail.Size > 1024 {
		return fmt.Errorf("thumbnail size must be between 1 and 1024")
	}
	switch c.Output.Format {
	case "json", "table":
	default:
		return fmt.Errorf("unsupported output format: %s", c.Output.Format)
	}
	switch c.Output.Compression {
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("unsupported output compression: %s", c.Output.Compression)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	return nil
}

// EnsureThumbnailDir creates the thumbnail directory when thumbnails are enabled.
func (c *Config) EnsureThumbnailDir() error {
	if !c.Thumbnail.Enabled || c.Thumbnail.Dir == "" {
		return nil
	}
	return os.MkdirAll(c.Thumbnail.Dir, 0755)
}
