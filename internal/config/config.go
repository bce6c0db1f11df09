// Package config loads server settings from a YAML file, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	Store       StoreConfig   `yaml:"store"`
	Upload      UploadConfig  `yaml:"upload"`
	CORS        CORSConfig    `yaml:"cors"`
	Logging     LoggingConfig `yaml:"logging"`
	Environment string        `yaml:"environment"`
}

// ServerConfig sets the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig selects the event store and how to reach it.
type StoreConfig struct {
	Driver         string        `yaml:"driver"`
	URL            string        `yaml:"url"`
	Database       string        `yaml:"database"`
	Collection     string        `yaml:"collection"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxConnections int           `yaml:"max_connections"`
}

// UploadConfig controls where attachments are written and their limits.
type UploadConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
	MaxFiles int    `yaml:"max_files"`
}

// CORSConfig lists the origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig sets the zerolog level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Store: StoreConfig{
			Driver:         DriverMongo,
			Collection:     "events",
			ConnectTimeout: 10 * time.Second,
			MaxConnections: 20,
		},
		Upload: UploadConfig{
			Dir:      "public/temp",
			MaxBytes: 32 << 20,
			MaxFiles: 10,
		},
		Logging:     LoggingConfig{Level: "info", Format: "json"},
		Environment: "development",
	}
}

// Load builds the configuration. Sources, lowest precedence first: built-in
// defaults, the YAML file at path (if non-empty), a .env file in the working
// directory (if present), then process environment variables.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Existing environment variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.URL = getEnv("DATABASE_URL", cfg.Store.URL)
	cfg.Store.Database = getEnv("DATABASE_NAME", cfg.Store.Database)
	cfg.Store.Collection = getEnv("EVENTS_COLLECTION", cfg.Store.Collection)
	cfg.Store.ConnectTimeout = getEnvDuration("STORE_CONNECT_TIMEOUT", cfg.Store.ConnectTimeout)
	cfg.Store.MaxConnections = getEnvInt("DATABASE_MAX_CONNECTIONS", cfg.Store.MaxConnections)
	cfg.Upload.Dir = getEnv("UPLOAD_DIR", cfg.Upload.Dir)
	cfg.Upload.MaxBytes = int64(getEnvInt("UPLOAD_MAX_BYTES", int(cfg.Upload.MaxBytes)))
	cfg.Upload.MaxFiles = getEnvInt("UPLOAD_MAX_FILES", cfg.Upload.MaxFiles)
	if origins := os.Getenv("CORS_ORIGIN"); origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot start a server.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", c.Store.Driver)
		}
		if c.Store.Database == "" {
			return fmt.Errorf("DATABASE_NAME is required for the %s driver", c.Store.Driver)
		}
	case DriverPostgres:
		if c.Store.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s driver", c.Store.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want mongo, postgres or memory)", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
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

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
