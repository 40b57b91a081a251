package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults for everything that has a sensible one. Secrets and
	// connection strings must come from the environment or a config file.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	// Empty defaults register the env-only keys with viper so AutomaticEnv
	// values survive Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("startup.critical_attempts", 3)
	v.SetDefault("startup.best_effort_timeout_seconds", 4)
	v.SetDefault("startup.settle_delay_millis", 200)
	v.SetDefault("startup.retry_backoff_millis", 0)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables with IGNITION_ prefix override file values,
	// e.g. IGNITION_DATABASE_URL, IGNITION_STARTUP_CRITICAL_ATTEMPTS.
	v.SetEnvPrefix("IGNITION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
