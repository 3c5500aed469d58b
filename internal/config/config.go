// Package config loads application settings from defaults, an optional YAML
// file and ARTICLEFEED_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ARTICLEFEED_SERVER_ADDR.
const EnvPrefix = "ARTICLEFEED"

// Source kinds.
const (
	SourceFixture = "fixture"
	SourceSQLite  = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Source SourceConfig `mapstructure:"source" validate:"required"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

// ServerConfig contains the HTTP listener and logging settings.
type ServerConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	DiagAddr string `mapstructure:"diag_addr" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// SourceConfig selects where articles and authors are loaded from.
type SourceConfig struct {
	Kind          string        `mapstructure:"kind" validate:"required,oneof=fixture sqlite"`
	SQLitePath    string        `mapstructure:"sqlite_path" validate:"required_if=Kind sqlite"`
	ArticlesDelay time.Duration `mapstructure:"articles_delay" validate:"gte=0"`
	AuthorsDelay  time.Duration `mapstructure:"authors_delay" validate:"gte=0"`
}

// RetryConfig controls retries of unavailable sources. Zero MaxRetries
// disables retrying.
type RetryConfig struct {
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" validate:"gtefield=InitialInterval"`
}

// Load reads the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":3333")
	v.SetDefault("server.diag_addr", ":9999")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("source.kind", SourceFixture)
	v.SetDefault("source.sqlite_path", "")
	v.SetDefault("source.articles_delay", "300ms")
	v.SetDefault("source.authors_delay", "1300ms")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_interval", "200ms")
	v.SetDefault("retry.max_interval", "2s")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("configuration validation failed: %s: %w", strings.Join(fields, ", "), err)
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	return nil
}
