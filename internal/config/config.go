package config

import (
	"fmt"
	"math"

	"github.com/caarlos0/env/v10"

	"goelicit/internal/errors"
	"goelicit/internal/linalg"
)

// Config represents the complete application configuration
type Config struct {
	Engine EngineConfig
	Server ServerConfig
	Log    LogConfig
}

// EngineConfig holds the design-engine knobs
type EngineConfig struct {
	ProfileConfigPath    string  `env:"PROFILE_CONFIG_PATH" envDefault:"config/attributes.yaml"`
	NumStatic            int     `env:"NUM_STATIC_VIGNETTES" envDefault:"8"`
	NumBeginning         int     `env:"NUM_BEGINNING_VIGNETTES" envDefault:"4"`
	PriorVariance        float64 `env:"PRIOR_VARIANCE" envDefault:"0.5"`
	Temperature          float64 `env:"TEMPERATURE" envDefault:"1.0"`
	UncertaintyThreshold float64 `env:"UNCERTAINTY_THRESHOLD" envDefault:"0.3"`
	MaxProfiles          int     `env:"MAX_PROFILES" envDefault:"0"` // 0 = full Cartesian product
	Workers              int     `env:"OPTIMIZER_WORKERS" envDefault:"4"`
	TopK                 int     `env:"TOP_UNCERTAIN_DIMENSIONS" envDefault:"3"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string `env:"PORT" envDefault:"8080"`
	AdminPort      string `env:"ADMIN_PORT" envDefault:"9090"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	// SSEEnabled streams planning rounds on /v1/events
	SSEEnabled bool `env:"SSE_ENABLED" envDefault:"true"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to parse environment")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// Default returns the configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	// Only envDefault values are applied when the environment is empty.
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

func validateConfig(cfg *Config) error {
	return cfg.Engine.Validate()
}

// Validate checks engine settings for internal consistency
func (e EngineConfig) Validate() error {
	if e.ProfileConfigPath == "" {
		return errors.ConfigInvalid("profile config path is required")
	}
	if e.NumStatic < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("NUM_STATIC_VIGNETTES must be >= 1, got %d", e.NumStatic))
	}
	if e.NumBeginning < 0 || e.NumBeginning > e.NumStatic {
		return errors.ConfigInvalid(fmt.Sprintf("NUM_BEGINNING_VIGNETTES must be in [0, %d], got %d", e.NumStatic, e.NumBeginning))
	}
	if e.PriorVariance <= 0 {
		return errors.ConfigInvalid(fmt.Sprintf("PRIOR_VARIANCE must be > 0, got %g", e.PriorVariance))
	}
	if !(e.Temperature >= linalg.MinTemperature) || math.IsInf(e.Temperature, 0) {
		return errors.ConfigInvalid(fmt.Sprintf("TEMPERATURE must be a finite number >= %g, got %g", linalg.MinTemperature, e.Temperature))
	}
	if e.UncertaintyThreshold < 0 {
		return errors.ConfigInvalid(fmt.Sprintf("UNCERTAINTY_THRESHOLD must be >= 0, got %g", e.UncertaintyThreshold))
	}
	if e.MaxProfiles < 0 {
		return errors.ConfigInvalid(fmt.Sprintf("MAX_PROFILES must be >= 0, got %d", e.MaxProfiles))
	}
	if e.Workers < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("OPTIMIZER_WORKERS must be >= 1, got %d", e.Workers))
	}
	if e.TopK < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("TOP_UNCERTAIN_DIMENSIONS must be >= 1, got %d", e.TopK))
	}
	return nil
}
