package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"google.golang.org/genai"

	"github.com/phrazzld/ignition/internal/auth"
	"github.com/phrazzld/ignition/internal/config"
	"github.com/phrazzld/ignition/internal/startup"
)

// Override keys under which startup tasks publish the capabilities they
// initialize. The running application pulls them from the ready snapshot.
const (
	overrideConfig    = "app.config"
	overrideDBPool    = "db.pool"
	overrideJWT       = "auth.jwt"
	overrideLLMClient = "llm.client"
)

// newStartupPlan builds the three-tier startup plan for the reference
// server. Critical tasks must all succeed before the API opens; best-effort
// tasks improve first-request latency but the server works without them;
// the background task records the boot for auditing.
func newStartupPlan(cfg *config.Config, logger *slog.Logger) startup.Plan {
	return startup.Plan{
		Critical: []startup.Task{
			{
				ID:        "database",
				TraceName: "init_database",
				Run:       databaseTask(cfg),
			},
			{
				ID:        "migrations",
				TraceName: "apply_migrations",
				Run:       migrationsTask(cfg),
			},
			{
				ID:        "auth",
				TraceName: "init_auth",
				Run:       authTask(cfg),
			},
		},
		BestEffort: []startup.Task{
			{
				ID:        "llm-warmup",
				TraceName: "warmup_llm_client",
				Run:       llmWarmupTask(cfg, logger),
			},
			{
				ID:        "cache-warm",
				TraceName: "warm_connection_cache",
				Run:       cacheWarmTask(),
			},
		},
		Background: []startup.Task{
			{
				ID:        "startup-audit",
				TraceName: "record_startup_audit",
				Run:       startupAuditTask(logger),
			},
		},
	}
}

// databaseTask establishes the connection pool and configures its limits.
// Every other task that needs the database reads the pool from the
// execution context rather than opening its own.
func databaseTask(cfg *config.Config) startup.RunFunc {
	return func(ctx context.Context, ec *startup.Context) (startup.Overrides, error) {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		return startup.Overrides{overrideDBPool: db}, nil
	}
}

// migrationsTask applies pending goose migrations. It opens its own short
// lived connection so it does not depend on a sibling critical task's
// override, which carries no ordering guarantee within a tier.
func migrationsTask(cfg *config.Config) startup.RunFunc {
	return func(ctx context.Context, ec *startup.Context) (startup.Overrides, error) {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open migrations connection: %w", err)
		}
		defer func() { _ = db.Close() }()

		goose.SetLogger(&slogGooseLogger{})
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, fmt.Errorf("failed to set goose dialect: %w", err)
		}
		if err := goose.UpContext(ctx, db, cfg.Database.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil, nil
	}
}

// authTask constructs the JWT signing service from the configured secret.
func authTask(cfg *config.Config) startup.RunFunc {
	return func(ctx context.Context, ec *startup.Context) (startup.Overrides, error) {
		svc, err := auth.NewJWTService(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
		}
		return startup.Overrides{overrideJWT: svc}, nil
	}
}

// llmWarmupTask creates the Gemini client ahead of the first generation
// request. Best-effort: the server runs fine without a warmed client, and
// an unset API key skips the task entirely.
func llmWarmupTask(cfg *config.Config, logger *slog.Logger) startup.RunFunc {
	return func(ctx context.Context, ec *startup.Context) (startup.Overrides, error) {
		if cfg.LLM.GeminiAPIKey == "" {
			logger.Debug("no LLM API key configured, skipping client warmup")
			return nil, nil
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.LLM.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		return startup.Overrides{overrideLLMClient: client}, nil
	}
}

// cacheWarmTask primes the pool established by the critical phase so the
// first real request does not pay connection setup cost. It runs in the
// enriched context, where critical-phase overrides are guaranteed present.
func cacheWarmTask() startup.RunFunc {
	return func(ctx context.Context, ec *startup.Context) (startup.Overrides, error) {
		pool, ok := ec.Value(overrideDBPool)
		if !ok {
			return nil, fmt.Errorf("database pool not present in startup context")
		}
		db, ok := pool.(*sql.DB)
		if !ok {
			return nil, fmt.Errorf("unexpected type %T under %s", pool, overrideDBPool)
		}

		warmCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		var one int
		if err := db.QueryRowContext(warmCtx, "SELECT 1").Scan(&one); err != nil {
			return nil, fmt.Errorf("failed to warm connection: %w", err)
		}
		return nil, nil
	}
}

// startupAuditTask records the boot in the startup_runs table created by
// the migrations task. Background: auditing never delays or blocks the
// ready transition.
func startupAuditTask(logger *slog.Logger) startup.RunFunc {
	return func(ctx context.Context, ec *startup.Context) (startup.Overrides, error) {
		pool, ok := ec.Value(overrideDBPool)
		if !ok {
			return nil, fmt.Errorf("database pool not present in startup context")
		}
		db, ok := pool.(*sql.DB)
		if !ok {
			return nil, fmt.Errorf("unexpected type %T under %s", pool, overrideDBPool)
		}

		id := uuid.New()
		_, err := db.ExecContext(ctx,
			`INSERT INTO startup_runs (id, state) VALUES ($1, $2)`,
			id, "started")
		if err != nil {
			return nil, fmt.Errorf("failed to record startup audit row: %w", err)
		}
		logger.Debug("startup audit recorded", "audit_id", id)
		return nil, nil
	}
}

// slogGooseLogger adapts goose's logger interface to slog.
type slogGooseLogger struct{}

// Printf implements the goose.Logger Printf method by forwarding messages to slog.Info
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements the goose.Logger Fatalf method by forwarding error messages to slog.Error
// Note: Unlike the standard Fatalf behavior, this does NOT call os.Exit;
// the failure is returned to the startup runner, which owns retry policy.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	slog.Error(fmt.Sprintf(format, v...))
}
