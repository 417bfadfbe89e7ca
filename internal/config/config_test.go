package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9090
jwt:
  secret: file-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "uq:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 168, cfg.JWT.ExpireHours)
	assert.Equal(t, 15*time.Minute, cfg.Auth.MagicLinkTTL)
	assert.Equal(t, "http://localhost:9090/auth/verify", cfg.Auth.MagicLinkURL)
	assert.Equal(t, 5, cfg.Auth.MaxVerifyAttempts)
	assert.Equal(t, 5, cfg.Auth.VerifyBurst)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.AI.Model)
	assert.Equal(t, 1024, cfg.AI.MaxTokens)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "* * * * *", cfg.Presence.Cron)
	assert.Same(t, cfg, GlobalConfig)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: file-secret
`)
	t.Setenv("UQ_JWT_SECRET", "env-secret")
	t.Setenv("UQ_AI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server:\n  http_port: 8080\n"))
		assert.ErrorContains(t, err, "jwt.secret")
	})

	t.Run("bad cron", func(t *testing.T) {
		_, err := Load(writeConfig(t, "jwt:\n  secret: s\npresence:\n  cron: \"not a cron\"\n"))
		assert.ErrorContains(t, err, "cron")
	})

	t.Run("ping longer than pong", func(t *testing.T) {
		_, err := Load(writeConfig(t, "jwt:\n  secret: s\nwebsocket:\n  ping_period: 40s\n  pong_wait: 30s\n"))
		assert.ErrorContains(t, err, "ping_period")
	})
}

func TestDSN(t *testing.T) {
	c := MySQLConfig{User: "u", Password: "p", Host: "db", Port: 3306, Database: "uq", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(db:3306)/uq?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
}
