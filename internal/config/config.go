// Package config loads fileshare settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"fileshare/internal/logging"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the process configuration. Every field has a default so the
// tool runs with no environment at all.
type Config struct {
	Port             int           `env:"FILESHARE_PORT,default=52525" validate:"min=0,max=65535"`
	MulticastAddress string        `env:"FILESHARE_MULTICAST_ADDRESS,default=224.0.0.234" validate:"required,ipv4"`
	ResendInterval   time.Duration `env:"FILESHARE_RESEND_INTERVAL,default=1s" validate:"min=10ms"`
	DiscoveryWait    time.Duration `env:"FILESHARE_DISCOVERY_WAIT,default=1500ms" validate:"min=0s"`
	LogLevel         string        `env:"FILESHARE_LOG_LEVEL,default=warn" validate:"oneof=debug info warn error"`
	LogFormat        string        `env:"FILESHARE_LOG_FORMAT,default=console" validate:"oneof=console json"`
	LogOutput        string        `env:"FILESHARE_LOG_OUTPUT,default=stderr"`
	MetricsAddr      string        `env:"FILESHARE_METRICS_ADDR" validate:"omitempty,hostname_port"`
	MDNS             bool          `env:"FILESHARE_MDNS,default=false"`
	NoColor          bool          `env:"FILESHARE_NO_COLOR,default=false"`
}

var validate = validator.New()

// Load reads an optional .env file from the working directory, then decodes
// and validates the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnviron()
}

// FromEnviron decodes and validates the current environment.
func FromEnviron() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		OutputPath: c.LogOutput,
	}
}
