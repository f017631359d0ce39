// Package config loads alat settings from a YAML file with ALAT_* environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/alphalat/alphalat/internal/spectral"
)

// EnvPrefix prefixes every environment override, e.g. ALAT_DATABASE_PATH.
const EnvPrefix = "ALAT"

// DefaultPath is used when no --config flag is given.
const DefaultPath = "alat.yaml"

// Config holds all configuration for alat.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Blob     BlobConfig     `yaml:"blob"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// AnalysisConfig mirrors spectral.Params.
type AnalysisConfig struct {
	FMin          float64  `yaml:"fmin" validate:"gt=0"`
	FMax          float64  `yaml:"fmax" validate:"gtefield=FMin"`
	Step          float64  `yaml:"step" validate:"gt=0"`
	Right         []string `yaml:"right" validate:"min=1,dive,required"`
	Left          []string `yaml:"left" validate:"min=1,dive,required"`
	CyclesDivisor float64  `yaml:"cycles_divisor" split_words:"true" validate:"gt=0"`
	Decim         int      `yaml:"decim" validate:"min=1"`
	Workers       int      `yaml:"workers" validate:"min=0"`
}

// BlobConfig selects where exports and event lists are written.
type BlobConfig struct {
	Driver    string `yaml:"driver" validate:"oneof=fs s3 memory"`
	Root      string `yaml:"root" validate:"required_if=Driver fs"`
	Bucket    string `yaml:"bucket" validate:"required_if=Driver s3"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style" split_words:"true"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// ServerConfig configures `alat serve`.
type ServerConfig struct {
	Port  int    `yaml:"port" validate:"min=1,max=65535"`
	Token string `yaml:"token,omitempty"`
}

// MetricsConfig controls the Prometheus textfile dump written after each run.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty" split_words:"true"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	p := spectral.DefaultParams()
	return &Config{
		Database: DatabaseConfig{Path: "alat.db"},
		Analysis: AnalysisConfig{
			FMin:          p.FMin,
			FMax:          p.FMax,
			Step:          p.Step,
			Right:         p.Right,
			Left:          p.Left,
			CyclesDivisor: p.CyclesDivisor,
			Decim:         p.Decim,
			Workers:       p.Workers,
		},
		Blob: BlobConfig{
			Driver: "fs",
			Root:   "derivatives",
			Region: "us-east-1",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Server:  ServerConfig{Port: 8080},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Params converts the analysis section.
func (c *Config) Params() spectral.Params {
	a := c.Analysis
	return spectral.Params{
		FMin:          a.FMin,
		FMax:          a.FMax,
		Step:          a.Step,
		Right:         append([]string(nil), a.Right...),
		Left:          append([]string(nil), a.Left...),
		CyclesDivisor: a.CyclesDivisor,
		Decim:         a.Decim,
		Workers:       a.Workers,
	}
}
