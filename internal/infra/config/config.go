// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	YouTube YouTubeConfig `yaml:"youtube"`
	Player  PlayerConfig  `yaml:"player"`
	Adapter AdapterConfig `yaml:"adapter"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Output string `yaml:"output" default:"console" validate:"oneof=console json file"`
	File   string `yaml:"file" validate:"required_if=Output file"`
}

// YouTubeConfig represents YouTube Data API configuration.
type YouTubeConfig struct {
	APIKey          string  `yaml:"api_key" validate:"required"`
	MaxResults      int     `yaml:"max_results" default:"5" validate:"gte=1,lte=50"`
	RequestsPerSec  float64 `yaml:"requests_per_sec" default:"2"`
	MaxDurationSec  int     `yaml:"max_duration_sec" default:"900" validate:"gte=0"`
	PreferredRegion string  `yaml:"preferred_region" validate:"omitempty,len=2"`
}

// PlayerConfig represents playback session tuning.
type PlayerConfig struct {
	ProbeTimeoutMs     int     `yaml:"probe_timeout_ms" default:"1000" validate:"gte=100,lte=10000"`
	ProgressIntervalMs int     `yaml:"progress_interval_ms" default:"500" validate:"gte=50,lte=5000"`
	SeekGraceMs        int     `yaml:"seek_grace_ms" default:"250" validate:"gte=0,lte=5000"`
	InitialVolume      float64 `yaml:"initial_volume" default:"0.7" validate:"gte=0,lte=1"`
}

// AdapterConfig represents the playback backend configuration.
type AdapterConfig struct {
	Type     string         `yaml:"type" default:"mpv" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// StorageConfig represents local persistence configuration.
type StorageConfig struct {
	Dir string `yaml:"dir" default:"./data"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// ProbeTimeout returns the embed probe timeout as a duration.
func (c *PlayerConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// ProgressInterval returns the progress poll interval as a duration.
func (c *PlayerConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMs) * time.Millisecond
}

// SeekGrace returns the post-seek buffering grace period as a duration.
func (c *PlayerConfig) SeekGrace() time.Duration {
	return time.Duration(c.SeekGraceMs) * time.Millisecond
}
