package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL   PostgreSQLConfig
	SQLite       SQLiteConfig
	Server       ServerConfig
	Browser      BrowserConfig
	Filter       FilterConfig
	Logging      LoggingConfig
	LocatorsFile string
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, wins over the parts below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// SQLiteConfig holds the fallback store location
type SQLiteConfig struct {
	Path string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// BrowserConfig holds the live page settings
type BrowserConfig struct {
	RemoteURL string
	Headless  bool
	TargetURL string
}

// FilterConfig holds the filtering session timings
type FilterConfig struct {
	RetryDelay           time.Duration
	SettleDelay          time.Duration
	WaitTimeout          time.Duration
	NotificationDuration time.Duration
	StorageTimeout       time.Duration
	StorageKey           string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", ""),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "landfilter"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 4),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "landfilter.db"),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "127.0.0.1"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Browser: BrowserConfig{
			RemoteURL: getEnv("BROWSER_REMOTE_URL", ""),
			Headless:  getEnvAsBool("BROWSER_HEADLESS", true),
			TargetURL: getEnv("TARGET_URL", "https://new.land.naver.com/complexes"),
		},
		Filter: FilterConfig{
			RetryDelay:           getEnvAsMillis("FILTER_RETRY_DELAY_MS", 3000),
			SettleDelay:          getEnvAsMillis("FILTER_SETTLE_DELAY_MS", 100),
			WaitTimeout:          getEnvAsMillis("FILTER_WAIT_TIMEOUT_MS", 5000),
			NotificationDuration: getEnvAsMillis("NOTIFICATION_DURATION_MS", 3000),
			StorageTimeout:       getEnvAsMillis("STORAGE_TIMEOUT_MS", 3000),
			StorageKey:           getEnv("STORAGE_KEY", "naverLandFilters"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		LocatorsFile: getEnv("LOCATORS_FILE", "locators.yaml"),
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string, "" when neither a
// DSN nor a host is configured
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}
	if c.PostgreSQL.Host == "" {
		return ""
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
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
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsMillis(key string, defaultMillis int) time.Duration {
	ms := getEnvAsInt(key, defaultMillis)
	if ms <= 0 {
		log.Printf("Warning: Non-positive duration for %s, using default %dms", key, defaultMillis)
		ms = defaultMillis
	}
	return time.Duration(ms) * time.Millisecond
}
