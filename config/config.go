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

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	App        AppConfig
	Firebase   FirebaseConfig
	AutoSave   AutoSaveConfig
	Versioning VersioningConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	DSN             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxConns        int
	MinConns        int
	ConnectAttempts int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	// Driver is "postgres" (Postgres + Redis) or "memory" (single process, no durability).
	Driver string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

type FirebaseConfig struct {
	CredentialsPath string
}

type AutoSaveConfig struct {
	Enabled       bool
	Interval      time.Duration
	TTL           time.Duration
	MaxDrafts     int
	PurgeSchedule string
	RateLimit     float64
	RateBurst     int
}

type VersioningConfig struct {
	AutoVersion          bool
	VersionOnMajorChange bool
	MajorChangeThreshold float64
	MaxVersions          int
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "promptlab"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			ConnectAttempts: getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		AutoSave: AutoSaveConfig{
			Enabled:       getEnvAsBool("AUTOSAVE_ENABLED", true),
			Interval:      getEnvAsDuration("AUTOSAVE_INTERVAL", 5*time.Second),
			TTL:           getEnvAsDuration("AUTOSAVE_TTL", 24*time.Hour),
			MaxDrafts:     getEnvAsInt("AUTOSAVE_MAX_DRAFTS", 20),
			PurgeSchedule: getEnv("AUTOSAVE_PURGE_SCHEDULE", "0 */10 * * * *"),
			RateLimit:     getEnvAsFloat("AUTOSAVE_RATE_LIMIT", 5),
			RateBurst:     getEnvAsInt("AUTOSAVE_RATE_BURST", 10),
		},
		Versioning: VersioningConfig{
			AutoVersion:          getEnvAsBool("VERSIONING_AUTO", true),
			VersionOnMajorChange: getEnvAsBool("VERSIONING_MAJOR_ONLY", true),
			MajorChangeThreshold: getEnvAsFloat("VERSIONING_THRESHOLD", 30),
			MaxVersions:          getEnvAsInt("VERSIONING_MAX_VERSIONS", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required")
		}
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.AutoSave.Interval <= 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL must be positive")
	}
	if c.AutoSave.MaxDrafts < 1 {
		return fmt.Errorf("AUTOSAVE_MAX_DRAFTS must be at least 1")
	}
	if c.Versioning.MaxVersions < 1 {
		return fmt.Errorf("VERSIONING_MAX_VERSIONS must be at least 1")
	}
	if c.Versioning.MajorChangeThreshold < 0 || c.Versioning.MajorChangeThreshold > 100 {
		return fmt.Errorf("VERSIONING_THRESHOLD must be between 0 and 100")
	}

	return nil
}

// PostgresDSN returns DB_DSN when set, otherwise builds one from the discrete fields.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("invalid number, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
