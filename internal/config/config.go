package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Startup  StartupConfig  `mapstructure:"startup"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`

	// MigrationsDir is the directory containing goose SQL migrations,
	// applied by the migrations startup task.
	MigrationsDir string `mapstructure:"migrations_dir" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings. The whole section
// is optional; when the API key is empty the warmup task is skipped.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// StartupConfig contains the tunables for the startup orchestration engine.
// None of these are hardcoded in the engine itself; they flow into
// startup.Options at application wiring time.
type StartupConfig struct {
	// CriticalAttempts is the total number of attempts each critical task
	// gets before the run is declared failed (initial attempt included).
	CriticalAttempts int `mapstructure:"critical_attempts" validate:"required,gte=1"`

	// BestEffortTimeoutSeconds bounds how long the orchestrator waits for
	// best-effort tasks before transitioning to ready anyway.
	BestEffortTimeoutSeconds int `mapstructure:"best_effort_timeout_seconds" validate:"required,gt=0"`

	// SettleDelayMillis is a short pause after the progress counter is
	// forced to 100%, giving any progress animation time to catch up.
	SettleDelayMillis int `mapstructure:"settle_delay_millis" validate:"gte=0"`

	// RetryBackoffMillis is the delay between critical retry waves.
	// Zero means busy-retry, which matches the historical behavior.
	RetryBackoffMillis int `mapstructure:"retry_backoff_millis" validate:"gte=0"`
}
