package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Local store drivers.
const (
	LocalSQLite = "sqlite"
	LocalRedis  = "redis"
	LocalMemory = "memory"
	LocalNone   = "none"
)

type Config struct {
	Remote Remote
	Local  Local
	Server ServerConfig
	App    AppConfig
}

// Remote holds the credentials of the remote data service.
type Remote struct {
	URL           string
	Key           string
	AutoProvision bool
}

// Configured reports whether requests should be served by the remote
// service. It depends only on the loaded values and may be called on every
// request.
func (r Remote) Configured() bool {
	return r.URL != "" && r.Key != ""
}

// Local selects the key/value driver used when the remote service is not
// configured.
type Local struct {
	Driver    string
	Path      string
	RedisAddr string
}

type ServerConfig struct {
	Port string
}

type AppConfig struct {
	LogLevel       string
	BackendTimeout time.Duration
}

// Load reads configuration from a .env file, if present, and the process
// environment.
func Load() (*Config, error) {
	// Missing .env is normal outside development.
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		Remote: Remote{
			URL:           strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			Key:           getEnv("SUPABASE_ANON_KEY", ""),
			AutoProvision: getEnvAsBool("SUPABASE_AUTO_PROVISION", false),
		},
		Local: Local{
			Driver:    strings.ToLower(getEnv("LOCAL_STORE", LocalSQLite)),
			Path:      getEnv("LOCAL_STORE_PATH", "./data/taskboard.db"),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		App: AppConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Local.Driver {
	case LocalSQLite, LocalRedis, LocalMemory, LocalNone:
	default:
		return fmt.Errorf("LOCAL_STORE must be one of sqlite, redis, memory, none (got %q)", c.Local.Driver)
	}

	if c.Local.Driver == LocalSQLite && c.Local.Path == "" {
		return fmt.Errorf("LOCAL_STORE_PATH is required for the sqlite store")
	}

	if c.App.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}

	return nil
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid boolean, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
}
