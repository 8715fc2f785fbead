// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"cadastro/internal/platform/logger"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// PageSize is the number of users per registry page.
	PageSize int `mapstructure:"CADASTRO_PAGE_SIZE"`
	// RequireValidCPF rejects registrations whose CPF fails the checksum.
	RequireValidCPF bool `mapstructure:"CADASTRO_REQUIRE_VALID_CPF"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"CADASTRO_LOG_LEVEL"`
	// LogFormat is text or json.
	LogFormat string `mapstructure:"CADASTRO_LOG_FORMAT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// A missing .env is ignored; a malformed one is an error. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !configMissing(err) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	v.AutomaticEnv()

	v.SetDefault("CADASTRO_PAGE_SIZE", 20)
	v.SetDefault("CADASTRO_REQUIRE_VALID_CPF", true)
	v.SetDefault("CADASTRO_LOG_LEVEL", "info")
	v.SetDefault("CADASTRO_LOG_FORMAT", logger.FormatText)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.PageSize <= 0 {
		return nil, errors.New("config: CADASTRO_PAGE_SIZE must be positive")
	}
	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return nil, errors.New("config: CADASTRO_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if !logger.ValidFormat(cfg.LogFormat) {
		return nil, errors.New("config: CADASTRO_LOG_FORMAT must be text or json")
	}

	return &cfg, nil
}

func configMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound)
}

// Level returns the parsed log level. Load has already validated it.
func (c *Config) Level() slog.Level {
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}
