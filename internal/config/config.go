// Package config loads server and historian settings from an optional YAML file
// with environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the commands look for a config file when none is given.
const DefaultPath = "configs/config.yaml"

// Config is the full settings tree.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Historian HistorianConfig `yaml:"historian"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig covers the game listener and the optional HTTP surface.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	HTTPAddr        string   `yaml:"http_addr"` // empty disables /ws and /admin
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MaxPlayers      int      `yaml:"max_players"`
	QueueSize       int      `yaml:"queue_size"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
}

// RedisConfig points at the action queue. An empty Addr disables action logging.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Queue    string `yaml:"queue"`
}

// HistorianConfig tunes the queue consumer.
type HistorianConfig struct {
	BatchSize     int `yaml:"batch_size"`
	FlushMs       int `yaml:"flush_ms"`
	InactivitySec int `yaml:"inactivity_sec"`
}

// DatabaseConfig holds the Postgres connection string.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// LogConfig selects the logrus level and output format.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4414,
			AllowedOrigins:  []string{"*"},
			MaxPlayers:      10,
			QueueSize:       256,
			WriteTimeoutSec: 10,
		},
		Redis: RedisConfig{
			Queue: "eights_actions",
		},
		Historian: HistorianConfig{
			BatchSize:     20,
			FlushMs:       500,
			InactivitySec: 600,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("EIGHTS_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("EIGHTS_PORT", c.Server.Port)
	c.Server.HTTPAddr = getEnv("EIGHTS_HTTP_ADDR", c.Server.HTTPAddr)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Server.MaxPlayers = getEnvInt("EIGHTS_MAX_PLAYERS", c.Server.MaxPlayers)
	c.Server.QueueSize = getEnvInt("EIGHTS_QUEUE_SIZE", c.Server.QueueSize)
	c.Server.WriteTimeoutSec = getEnvInt("EIGHTS_WRITE_TIMEOUT_SEC", c.Server.WriteTimeoutSec)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.Queue = getEnv("HISTORIAN_QUEUE_NAME", c.Redis.Queue)

	c.Historian.BatchSize = getEnvInt("HISTORIAN_BATCH_SIZE", c.Historian.BatchSize)
	c.Historian.FlushMs = getEnvInt("HISTORIAN_FLUSH_MS", c.Historian.FlushMs)
	c.Historian.InactivitySec = getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", c.Historian.InactivitySec)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	if c.Database.URL == "" && os.Getenv("PG_HOST") != "" {
		c.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			os.Getenv("PG_HOST"),
			getEnv("PG_PORT", "5432"),
			os.Getenv("PG_DATABASE"),
		)
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	// 10 seats x 5 cards plus the first card must fit in one deck.
	if c.Server.MaxPlayers < 1 || c.Server.MaxPlayers > 10 {
		return fmt.Errorf("server.max_players must be between 1 and 10, got %d", c.Server.MaxPlayers)
	}
	if c.Server.QueueSize < 1 {
		return fmt.Errorf("server.queue_size must be positive, got %d", c.Server.QueueSize)
	}
	if c.Historian.BatchSize < 1 {
		return fmt.Errorf("historian.batch_size must be positive, got %d", c.Historian.BatchSize)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// TCPAddr is the game listener address.
func (c *ServerConfig) TCPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WriteTimeout returns the per-line write deadline.
func (c *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// FlushDelay returns how often a partial batch is written.
func (c *HistorianConfig) FlushDelay() time.Duration {
	return time.Duration(c.FlushMs) * time.Millisecond
}

// Inactivity returns how long a game may go quiet before it is marked abandoned.
func (c *HistorianConfig) Inactivity() time.Duration {
	return time.Duration(c.InactivitySec) * time.Second
}

// NewLogger builds a logrus logger at the configured level.
func (c *LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	c.Apply(logger)
	return logger
}

// Apply sets the configured level and formatter on an existing logger, such as
// logrus.StandardLogger() used by packages that log through the logrus globals.
func (c *LogConfig) Apply(logger *logrus.Logger) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
