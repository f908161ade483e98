package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4414, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:4414", cfg.Server.TCPAddr())
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Historian.FlushDelay())
	assert.Equal(t, 10*time.Minute, cfg.Historian.Inactivity())
	assert.Empty(t, cfg.Server.HTTPAddr)
	assert.Empty(t, cfg.Redis.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 5000
  http_addr: ":8080"
redis:
  addr: "localhost:6379"
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 10, cfg.Server.MaxPlayers, "unset keys keep defaults")
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "eights_actions", cfg.Redis.Queue)
	assert.Equal(t, logrus.DebugLevel, cfg.Log.NewLogger().GetLevel())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 5000\n")
	t.Setenv("EIGHTS_PORT", "6000")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HISTORIAN_QUEUE_NAME", "custom")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/eights")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "custom", cfg.Redis.Queue)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "postgres://u:p@db:5432/eights", cfg.Database.URL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestDatabaseURLFromPostgresParts(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("POSTGRES_USER", "eights")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "history")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://eights:secret@db:5432/history", cfg.Database.URL)
}

func TestInvalidEnvIntKeepsValue(t *testing.T) {
	t.Setenv("EIGHTS_PORT", "not-a-port")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4414, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"too many players", func(c *Config) { c.Server.MaxPlayers = 11 }},
		{"no players", func(c *Config) { c.Server.MaxPlayers = 0 }},
		{"queue", func(c *Config) { c.Server.QueueSize = 0 }},
		{"batch", func(c *Config) { c.Historian.BatchSize = 0 }},
		{"level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}

func TestApplyConfiguresExistingLogger(t *testing.T) {
	logger := logrus.New()
	cfg := LogConfig{Level: "warn", JSON: true}
	cfg.Apply(logger)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	bad := LogConfig{Level: "bogus"}
	bad.Apply(logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel(), "unknown level falls back to info")
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
