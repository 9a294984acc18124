// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Addr        string
	Driver      string
	DBPath      string
	DatabaseURL string

	DocumentsDir   string
	DocumentsInbox string // document_path values must resolve inside it
	IdempotencyDB  string // empty disables Idempotency-Key replay
	IdempotencyTTL time.Duration
	LeaveTypesFile string // empty uses the stock leave types

	DefaultAllotment decimal.Decimal

	RolloverAuto          bool
	RolloverCheckInterval time.Duration

	LogLevel    slog.Level
	CORSOrigins []string
}

// Load reads envFile when it exists, then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		Driver:                getEnv("DB_DRIVER", DriverSQLite),
		DBPath:                getEnv("DB_PATH", "./data/leave.db"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DocumentsDir:          getEnv("DOCUMENTS_DIR", "./data/documents"),
		DocumentsInbox:        getEnv("DOCUMENTS_INBOX", "./data/inbox"),
		IdempotencyDB:         getEnv("IDEMPOTENCY_DB", "./data/idempotency.db"),
		IdempotencyTTL:        getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		LeaveTypesFile:        getEnv("LEAVE_TYPES_FILE", ""),
		DefaultAllotment:      getEnvDecimal("DEFAULT_ANNUAL_ALLOTMENT", generic.DefaultAnnualAllotment),
		RolloverAuto:          getEnvBool("ROLLOVER_AUTO", false),
		RolloverCheckInterval: getEnvDuration("ROLLOVER_CHECK_INTERVAL", time.Hour),
		LogLevel:              getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		CORSOrigins:           splitList(getEnv("CORS_ORIGINS", "*")),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return fallback
	}
	return level
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of %s, %s, %s (got %q)", DriverSQLite, DriverPostgres, DriverMemory, c.Driver)
	}
	if !c.DefaultAllotment.IsPositive() {
		return fmt.Errorf("DEFAULT_ANNUAL_ALLOTMENT must be positive")
	}
	if c.RolloverAuto && c.RolloverCheckInterval <= 0 {
		return fmt.Errorf("ROLLOVER_CHECK_INTERVAL must be positive when ROLLOVER_AUTO is true")
	}
	if c.IdempotencyDB != "" {
		if c.IdempotencyTTL <= 0 {
			return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
		}
		if c.RolloverCheckInterval <= 0 {
			return fmt.Errorf("ROLLOVER_CHECK_INTERVAL must be positive: it also paces the idempotency purge")
		}
	}
	return nil
}
