package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
game:
  time_limit: 45s
  target: 200
auth:
  enabled: true
  jwt_secret: sekrit
redis:
  enabled: true
  addr: redis.internal:6379
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Game.TimeLimit)
	assert.Equal(t, 200, cfg.Game.Target)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)

	// Unset fields get defaults
	assert.Equal(t, 6, cfg.Game.DigitCount)
	assert.Equal(t, 30*time.Second, cfg.Game.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.NATS.Enabled)
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")
	path := writeConfig(t, `
auth:
  enabled: true
  jwt_secret: ${TEST_JWT_SECRET}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Game.TimeLimit)
	assert.Equal(t, 100, cfg.Game.Target)
	assert.False(t, cfg.Auth.Enabled)
	assert.False(t, cfg.NATS.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "hecto",
		Password: "pw",
		Database: "hectoclash",
	}
	assert.Equal(t, "postgres://hecto:pw@db.internal:5432/hectoclash?sslmode=disable", cfg.DSN())
}
