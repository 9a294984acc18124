package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-ledger/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ADDR", "DB_DRIVER", "DEFAULT_ANNUAL_ALLOTMENT", "ROLLOVER_AUTO", "LOG_LEVEL", "CORS_ORIGINS", "IDEMPOTENCY_TTL", "DOCUMENTS_INBOX"} {
		t.Setenv(k, "")
	}

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, config.DriverSQLite, cfg.Driver)
	assert.True(t, cfg.DefaultAllotment.Equal(decimal.NewFromInt(22)))
	assert.False(t, cfg.RolloverAuto)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "./data/inbox", cfg.DocumentsInbox)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("DEFAULT_ANNUAL_ALLOTMENT", "25.5")
	t.Setenv("ROLLOVER_AUTO", "true")
	t.Setenv("ROLLOVER_CHECK_INTERVAL", "10m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DriverMemory, cfg.Driver)
	assert.Equal(t, "25.5", cfg.DefaultAllotment.String())
	assert.True(t, cfg.RolloverAuto)
	assert.Equal(t, 10*time.Minute, cfg.RolloverCheckInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	// GIVEN: a .env file and a variable that is not already set
	t.Setenv("APP_ADDR", "")
	os.Unsetenv("APP_ADDR")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_ADDR=:9999\n"), 0o600))

	// WHEN
	cfg, err := config.Load(path)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := config.Config{Driver: config.DriverSQLite, DBPath: "x.db", DefaultAllotment: decimal.NewFromInt(22)}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Driver = "oracle" }},
		{"postgres without url", func(c *config.Config) { c.Driver = config.DriverPostgres }},
		{"zero allotment", func(c *config.Config) { c.DefaultAllotment = decimal.Zero }},
		{"auto rollover without interval", func(c *config.Config) { c.RolloverAuto = true }},
		{"idempotency without ttl", func(c *config.Config) {
			c.IdempotencyDB = "idem.db"
			c.RolloverCheckInterval = time.Hour
		}},
		{"idempotency without interval", func(c *config.Config) {
			c.IdempotencyDB = "idem.db"
			c.IdempotencyTTL = time.Hour
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
