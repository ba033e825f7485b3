package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "bizledger-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 2, cfg.Scheduler.RunAtHour)
	assert.Equal(t, 5*time.Second, cfg.Metering.LockWait)
	assert.Equal(t, 30*time.Second, cfg.Metering.StatusCacheTTL)
	assert.Equal(t, 14, cfg.Metering.TrialDays)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BIZLEDGER_DATABASE_HOST", "db.internal")
	t.Setenv("BIZLEDGER_METERING_LOCK_WAIT", "250ms")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Metering.LockWait)
}

func TestValidate_PoolSettings(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Database.MaxIdleConns = 50
	cfg.Database.MaxOpenConns = 10

	assert.Error(t, cfg.validate())
}

func TestValidate_SchedulerHour(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Scheduler.RunAtHour = 24

	assert.Error(t, cfg.validate())
}

func TestValidate_ProductionRequiresPasswordAndSSL(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"

	assert.Error(t, cfg.validate(), "missing password rejected")

	cfg.Database.Password = "secret"
	assert.Error(t, cfg.validate(), "sslmode=disable rejected")

	cfg.Database.SSLMode = "require"
	assert.NoError(t, cfg.validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "p@ss/word",
		DBName:   "bizledger",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "p%40ss%2Fword", "password is escaped")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}

	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}
