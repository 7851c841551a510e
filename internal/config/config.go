// Package config loads runtime configuration for the reference bucket
// manager: an optional YAML file layered over environment defaults.
// Precedence is CLI flags > config file > environment > built-in defaults;
// the flag layer is applied by the command package.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	AWS     AWSConfig     `yaml:"aws"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Copy    CopyConfig    `yaml:"copy"`
}

// AWSConfig selects the credential/region context for all S3 and AWS CLI
// calls. Credentials themselves are resolved by the SDK's default chain.
type AWSConfig struct {
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// CopyConfig tunes the copy execution of clone operations.
type CopyConfig struct {
	// Workers bounds concurrent prefix copies. 1 (the default) preserves
	// strictly sequential plan-order execution.
	Workers int `yaml:"workers"`
}

// Default returns the built-in configuration with environment overrides
// applied.
func Default() Config {
	return Config{
		AWS: AWSConfig{
			Profile: os.Getenv("AWS_PROFILE"),
			Region:  getenvDefault("AWS_REGION", os.Getenv("AWS_DEFAULT_REGION")),
		},
		Log: LogConfig{
			Level:  getenvDefault("DAYREFS_LOG_LEVEL", "info"),
			Format: getenvDefault("DAYREFS_LOG_FORMAT", "text"),
		},
		Metrics: MetricsConfig{
			Enabled: os.Getenv("DAYREFS_METRICS_ADDR") != "",
			Address: os.Getenv("DAYREFS_METRICS_ADDR"),
		},
		Copy: CopyConfig{
			Workers: 1,
		},
	}
}

// Load returns the default configuration merged with the YAML file at
// path. An empty path skips the file layer; a missing file at a non-empty
// path is an error, since the caller asked for it explicitly.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if cfg.Copy.Workers < 1 {
		cfg.Copy.Workers = 1
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
