package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// DefaultDatabaseURL is the embedded database file used when nothing is configured.
	DefaultDatabaseURL = "data/app.db"
)

type Config struct {
	// Database connection.
	DatabaseURL string
	Driver      string // "sqlite" or "postgres"; inferred from DatabaseURL when empty

	// Profiling.
	SlowThresholdMS int64 // 0 means not set
	ReadOnlyGuard   bool

	// Report.
	CasesFile string // optional path to a YAML case file
	Format    string // "text" (default) or "json"

	// Logging.
	LogLevel slog.Level

	// Connection pool.
	PoolMaxConns        int32         // default: 5
	PoolMinConns        int32         // default: 1
	PoolMaxConnLifetime time.Duration // default: 30m

	// Observability.
	OTelEnabled bool   // enable OpenTelemetry tracing and metrics
	AuditLog    string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	DatabaseURL     *string
	Driver          *string
	SlowThresholdMS *int64
	ReadOnlyGuard   bool
	CasesFile       *string
	Format          *string
	LogLevel        *string
	OTelEnabled     bool
	AuditLog        *string

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		DatabaseURL:         DefaultDatabaseURL,
		Format:              "text",
		LogLevel:            slog.LevelInfo,
		PoolMaxConns:        5,
		PoolMinConns:        1,
		PoolMaxConnLifetime: 30 * time.Minute,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))

	if v := os.Getenv("SLOW_QUERY_THRESHOLD_MS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid SLOW_QUERY_THRESHOLD_MS value %q: must be a positive integer", v)
		}
		cfg.SlowThresholdMS = n
	}

	if v := os.Getenv("READ_ONLY_GUARD"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid READ_ONLY_GUARD value %q: %w", v, err)
		}
		cfg.ReadOnlyGuard = b
	}

	cfg.CasesFile = os.Getenv("CASES_FILE")
	if v := os.Getenv("REPORT_FORMAT"); v != "" {
		cfg.Format = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}
	cfg.AuditLog = os.Getenv("AUDIT_LOG")

	if err := loadPoolEnvVars(cfg); err != nil {
		return err
	}

	return nil
}

// loadPoolEnvVars reads connection pool environment variables.
func loadPoolEnvVars(cfg *Config) error {
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid POOL_MIN_CONNS value %q: must be a non-negative integer", v)
		}
		cfg.PoolMinConns = int32(n)
	}
	if v := os.Getenv("POOL_MAX_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POOL_MAX_CONN_LIFETIME value %q: %w", v, err)
		}
		cfg.PoolMaxConnLifetime = d
	}
	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.Driver != nil {
		cfg.Driver = strings.ToLower(strings.TrimSpace(*o.Driver))
	}
	if o.SlowThresholdMS != nil {
		if *o.SlowThresholdMS <= 0 {
			return fmt.Errorf("invalid --slow-threshold-ms value: must be a positive integer")
		}
		cfg.SlowThresholdMS = *o.SlowThresholdMS
	}
	if o.CasesFile != nil {
		cfg.CasesFile = *o.CasesFile
	}
	if o.Format != nil {
		cfg.Format = strings.ToLower(strings.TrimSpace(*o.Format))
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.AuditLog != nil {
		cfg.AuditLog = *o.AuditLog
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	cfg.ReadOnlyGuard = cfg.ReadOnlyGuard || o.ReadOnlyGuard
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// validate checks cross-field constraints on the final config and fills in the
// driver when it was left for inference.
func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty (set via env var or --database-url flag)")
	}

	if cfg.Driver == "" {
		cfg.Driver = inferDriver(cfg.DatabaseURL)
	}
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER value %q: must be %q or %q", cfg.Driver, DriverSQLite, DriverPostgres)
	}

	switch cfg.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid REPORT_FORMAT value %q: must be \"text\" or \"json\"", cfg.Format)
	}

	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}

	return nil
}

func inferDriver(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
