package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables
// or a .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// the HTTP server, the PostgreSQL sink, the optional Redis cache, and the SPIMEX
// download pipeline.
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings
	Redis    RedisConfig    // Redis cache settings (optional)
	Spimex   SpimexConfig   // Bulletin discovery/download settings
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string // computed DSN used by database/sql to connect
}

// RedisConfig defines connection details for the read-side query cache.
// An empty Host disables caching entirely; every query then goes to Postgres.
type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string
	CacheTTL time.Duration
}

// SpimexConfig holds everything the bulletin pipeline needs: where the exchange
// publishes its listing, where raw reports are kept locally, and the retry and
// concurrency budgets for fetching.
type SpimexConfig struct {
	BaseURL       string        // e.g. "https://spimex.com"
	ReportsDir    string        // local directory for raw bulletin files
	MaxPages      int           // hard cap on listing pages walked per discovery run
	Retries       int           // total attempts per fetch
	RetryDelay    time.Duration // base delay; grows linearly with the attempt number
	Timeout       time.Duration // per-attempt HTTP timeout
	MaxConcurrent int64         // simultaneous in-flight downloads / file parses
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from a .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "oilpulse")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("CACHE_TTL_SECONDS", 3600)

	viper.SetDefault("SPIMEX_BASE_URL", "https://spimex.com")
	viper.SetDefault("REPORTS_DIR", "./data/reports")
	viper.SetDefault("DOWNLOAD_MAX_PAGES", 65)
	viper.SetDefault("DOWNLOAD_RETRIES", 3)
	viper.SetDefault("DOWNLOAD_RETRY_DELAY_MS", 1500)
	viper.SetDefault("DOWNLOAD_TIMEOUT_SECONDS", 30)
	viper.SetDefault("DOWNLOAD_MAX_CONCURRENT", 10)

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			DB:       viper.GetInt("REDIS_DB"),
			Password: viper.GetString("REDIS_PASSWORD"),
			CacheTTL: time.Duration(viper.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		Spimex: SpimexConfig{
			BaseURL:       viper.GetString("SPIMEX_BASE_URL"),
			ReportsDir:    viper.GetString("REPORTS_DIR"),
			MaxPages:      viper.GetInt("DOWNLOAD_MAX_PAGES"),
			Retries:       viper.GetInt("DOWNLOAD_RETRIES"),
			RetryDelay:    time.Duration(viper.GetInt("DOWNLOAD_RETRY_DELAY_MS")) * time.Millisecond,
			Timeout:       time.Duration(viper.GetInt("DOWNLOAD_TIMEOUT_SECONDS")) * time.Second,
			MaxConcurrent: viper.GetInt64("DOWNLOAD_MAX_CONCURRENT"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if AppConfig.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if AppConfig.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if AppConfig.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if AppConfig.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if AppConfig.Spimex.BaseURL == "" {
		missing = append(missing, "SPIMEX_BASE_URL")
	}
	if AppConfig.Spimex.ReportsDir == "" {
		missing = append(missing, "REPORTS_DIR")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
