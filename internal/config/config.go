package config

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

const defaultConfigFile = "todo.toml"

// Config holds the server configuration.
type Config struct {
	// Server settings
	ServerPort string `toml:"server_port"`

	// OpenTelemetry settings
	OTLPEndpoint     string `toml:"otlp_endpoint"`
	ServiceName      string `toml:"service_name"`
	Environment      string `toml:"environment"`
	TelemetryEnabled bool   `toml:"telemetry_enabled"`

	Store StoreConfig `toml:"store"`
	Auth  AuthConfig  `toml:"auth"`
}

// StoreConfig selects and parameterizes the item store backend.
type StoreConfig struct {
	Backend       string `toml:"backend"` // memory | sqlite | redis | postgres
	Table         string `toml:"table"`
	SQLitePath    string `toml:"sqlite_path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	DatabaseURL   string `toml:"database_url"`
}

// AuthConfig holds the hardcoded login credentials.
type AuthConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Match reports whether the given credentials equal the configured pair,
// in constant time.
func (a AuthConfig) Match(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(a.Password))
	return u&p == 1
}

// ClientConfig holds the settings of the todo client.
type ClientConfig struct {
	ServerURL string     `toml:"server_url"`
	DataDir   string     `toml:"data_dir"`
	Auth      AuthConfig `toml:"auth"`
}

// Load returns the server configuration. Values come from defaults, then the
// optional TOML file, then environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       "8080",
		OTLPEndpoint:     "localhost:4317",
		ServiceName:      "go-todo",
		Environment:      "development",
		TelemetryEnabled: true,
		Store: StoreConfig{
			Backend:     "memory",
			Table:       "Todos",
			SQLitePath:  "todos.db",
			RedisAddr:   "localhost:6379",
			DatabaseURL: "postgres://localhost:5432/todos?sslmode=disable",
		},
		Auth: defaultAuth(),
	}

	if err := loadFile(cfg); err != nil {
		return nil, err
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.TelemetryEnabled = getEnvBool("OTEL_ENABLED", cfg.TelemetryEnabled)

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Table = getEnv("STORE_TABLE", cfg.Store.Table)
	cfg.Store.SQLitePath = getEnv("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.RedisAddr = getEnv("REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.RedisDB = getEnvInt("REDIS_DB", cfg.Store.RedisDB)
	cfg.Store.DatabaseURL = getEnv("DATABASE_URL", cfg.Store.DatabaseURL)

	loadAuthEnv(&cfg.Auth)

	switch cfg.Store.Backend {
	case "memory", "sqlite", "redis", "postgres":
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	return cfg, nil
}

// LoadClient returns the client configuration.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		ServerURL: "http://localhost:8080",
		Auth:      defaultAuth(),
	}

	if err := loadFile(cfg); err != nil {
		return nil, err
	}

	cfg.ServerURL = getEnv("TODO_SERVER_URL", cfg.ServerURL)
	cfg.DataDir = getEnv("TODO_DATA_DIR", cfg.DataDir)
	loadAuthEnv(&cfg.Auth)

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("home: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".todo")
	}

	return cfg, nil
}

func defaultAuth() AuthConfig {
	return AuthConfig{Username: "user", Password: "password"}
}

func loadAuthEnv(a *AuthConfig) {
	a.Username = getEnv("AUTH_USERNAME", a.Username)
	a.Password = getEnv("AUTH_PASSWORD", a.Password)
}

// loadFile decodes the TOML file named by TODO_CONFIG, or ./todo.toml when
// present. An explicitly named file must exist.
func loadFile(dst any) error {
	path := os.Getenv("TODO_CONFIG")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, dst); err != nil {
		return fmt.Errorf("loading config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
