// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Log       LogConfig
	Cache     CacheConfig
	Auth      AuthConfig
	Documents DocumentsConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig describes the connection. DSN, when set, wins over the
// discrete postgres fields.
type DatabaseConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Debug    bool
}

type AppConfig struct {
	Dev             bool
	Migrations      bool
	SQLMigrations   bool
	Seed            bool
	OverdueInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig selects Redis when RedisAddr is set, memory otherwise.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	AnalysisTTL   time.Duration
	MaxEntries    int
}

type AuthConfig struct {
	SessionSecret   string
	ProfileCacheTTL time.Duration
}

type DocumentsConfig struct {
	CatalogFile              string
	EnforceRequiredDocuments bool
	DefaultCurrency          string
}

// ConnString returns the driver connection string.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Driver == DriverSQLite {
		return "file:crm.db?_foreign_keys=on"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns a postgres URL, as golang-migrate expects.
func (d DatabaseConfig) URL() string {
	if strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://") {
		return d.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Load reads configuration from the environment with defaults suited to
// local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			DSN:      getEnv("DATABASE_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "crm"),
			Password: getEnv("DB_PASSWORD", "crm"),
			DBName:   getEnv("DB_NAME", "crm"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Debug:    getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:             getEnvBool("DEV", true),
			Migrations:      getEnvBool("MIGRATIONS", true),
			SQLMigrations:   getEnvBool("SQL_MIGRATIONS", false),
			Seed:            getEnvBool("SEED", true),
			OverdueInterval: getEnvDuration("OVERDUE_INTERVAL", time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			Prefix:        getEnv("CACHE_PREFIX", "crm:"),
			AnalysisTTL:   getEnvDuration("ANALYSIS_CACHE_TTL", 10*time.Minute),
			MaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 10000),
		},
		Auth: AuthConfig{
			SessionSecret:   getEnv("SESSION_SECRET", "devsessionsecret"),
			ProfileCacheTTL: getEnvDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		},
		Documents: DocumentsConfig{
			CatalogFile:              getEnv("CATALOG_FILE", ""),
			EnforceRequiredDocuments: getEnvBool("ENFORCE_REQUIRED_DOCUMENTS", false),
			DefaultCurrency:          strings.ToUpper(getEnv("DEFAULT_CURRENCY", "SAR")),
		},
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if !c.App.Dev && c.Auth.SessionSecret == "devsessionsecret" {
		return fmt.Errorf("SESSION_SECRET must be set outside DEV mode")
	}
	if c.App.SQLMigrations && c.Database.Driver != DriverPostgres {
		return fmt.Errorf("SQL_MIGRATIONS requires the postgres driver")
	}
	if len(c.Documents.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be an ISO 4217 code, got %q", c.Documents.DefaultCurrency)
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
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool accepts "1", "true" and "yes" as true.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
