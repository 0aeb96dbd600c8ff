package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setDBEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_USER", "habits")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "habits_db")
}

func TestLoad_Defaults(t *testing.T) {
	setDBEnv(t)
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("PARTIAL_DATE_POLICY", "")
	t.Setenv("DB_MAX_CONNS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "America/Mexico_City", cfg.Timezone)
	assert.Equal(t, PartialDateUseToday, cfg.PartialDatePolicy)
	assert.Equal(t, 10, cfg.DBMaxConns)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	setDBEnv(t)
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestLoad_PartialDatePolicy(t *testing.T) {
	setDBEnv(t)

	t.Setenv("PARTIAL_DATE_POLICY", "REJECT")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, PartialDateReject, cfg.PartialDatePolicy)

	t.Setenv("PARTIAL_DATE_POLICY", "guess")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_MaxConnsFloor(t *testing.T) {
	setDBEnv(t)
	t.Setenv("DB_MAX_CONNS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.DBMaxConns)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "5")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "IP")

	rl := LoadRateLimitConfig()
	assert.True(t, rl.Enabled)
	assert.Equal(t, 5, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, 2*time.Second, rl.RefillInterval)
	assert.Equal(t, 12*time.Second, rl.TTL, "ttl covers a full refill")
	assert.Equal(t, RateKeyIP, rl.KeyStrategy)

	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "per_planet")
	t.Setenv("RATE_LIMIT_CAPACITY", "-4")
	rl = LoadRateLimitConfig()
	assert.Equal(t, RateKeyCallerRoute, rl.KeyStrategy)
	assert.Equal(t, 1, rl.Capacity)
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_DB", "2")
	rc := LoadRedisConfig()
	assert.Equal(t, "cache:6380", rc.Addr)
	assert.Equal(t, 2, rc.DB)
	assert.Equal(t, 2*time.Second, rc.DialTimeout)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	assert.Equal(t, "redis:6379", LoadRedisConfig().Addr)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	rc := RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}
	client, err := NewRedisClient(context.Background(), rc)
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "127.0.0.1:1")
}

func TestLoad_LogFormat(t *testing.T) {
	setDBEnv(t)

	t.Setenv("LOG_FORMAT", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)

	t.Setenv("LOG_FORMAT", "JSON")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)

	t.Setenv("LOG_FORMAT", "xml")
	_, err = Load()
	assert.ErrorContains(t, err, "LOG_FORMAT")
}
