// Package config loads service configuration from environment variables
// with development-friendly defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// Store backend selectors.
const (
	StoreSheets   = "sheets"
	StoreWorkbook = "workbook"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Cache backend selectors.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Auth mode selectors.
const (
	AuthStatic = "static"
	AuthRemote = "remote"
)

// Config for the materna-data service.
type Config struct {
	HTTP struct {
		Addr string
	}
	Store struct {
		Backend  string        // sheets | workbook | postgres | memory
		CacheTTL time.Duration // row cache window
	}
	Sheets struct {
		BaseURL       string
		SpreadsheetID string
		Token         string
		Timeout       time.Duration
	}
	Workbook struct {
		Path string
	}
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}
	Cache struct {
		Backend string // memory | redis
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Auth struct {
		Mode            string // static | remote
		StaticToken     string // dev-only admin token for static mode
		IntrospectURL   string // remote token introspection endpoint
		IntrospectToken string // credential presented to the introspection endpoint
		Timeout         time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment.
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Store.Backend = getEnv("STORE_BACKEND", StoreMemory)
	cfg.Store.CacheTTL = time.Duration(parseInt(getEnv("STORE_CACHE_TTL_SECONDS", "30"), 30)) * time.Second

	cfg.Sheets.BaseURL = getEnv("SHEETS_BASE_URL", "https://sheets.googleapis.com")
	cfg.Sheets.SpreadsheetID = getEnv("SHEETS_SPREADSHEET_ID", "")
	cfg.Sheets.Token = getEnv("SHEETS_TOKEN", "")
	cfg.Sheets.Timeout = time.Duration(parseInt(getEnv("SHEETS_TIMEOUT_SECONDS", "30"), 30)) * time.Second

	cfg.Workbook.Path = getEnv("WORKBOOK_PATH", "materna-data.xlsx")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "materna")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Cache.Backend = getEnv("CACHE_BACKEND", CacheMemory)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Auth.Mode = getEnv("AUTH_MODE", AuthStatic)
	cfg.Auth.StaticToken = getEnv("AUTH_STATIC_TOKEN", "dev-admin-token")
	cfg.Auth.IntrospectURL = getEnv("AUTH_INTROSPECT_URL", "")
	cfg.Auth.IntrospectToken = getEnv("AUTH_INTROSPECT_TOKEN", "")
	cfg.Auth.Timeout = time.Duration(parseInt(getEnv("AUTH_TIMEOUT_SECONDS", "10"), 10)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
