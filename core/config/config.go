package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Dify     DifyConfig
	Retry    RetryConfig
	Prefetch PrefetchConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasicAuth          []string
	BasePath           string
	TrustedProxies     []string
	BaseUrl            string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	// File path for the SQLite cache database.
	Name            string
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

// CacheConfig controls both cache tiers for dish-image results.
type CacheConfig struct {
	TTL           time.Duration
	MaxEntries    int
	SweepInterval time.Duration
}

// DifyConfig points at the hosted image-matcher workflow.
type DifyConfig struct {
	BaseURL        string
	MatcherAPIKey  string
	RequestTimeout time.Duration
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

type PrefetchConfig struct {
	Workers   int
	QueueSize int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from environment variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := false
	if v := os.Getenv("APP_DEBUG"); v == "true" || v == "1" || v == "on" {
		debug = true
	} else if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		debug = true
	}

	var basicAuth []string
	if v := os.Getenv("APP_BASIC_AUTH"); v != "" {
		basicAuth = strings.Split(v, ",")
	}

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := os.Getenv("APP_CORS_ALLOWED_ORIGINS"); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.2.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasicAuth:          basicAuth,
		BasePath:           getEnv("APP_BASE_PATH", ""),
		BaseUrl:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		CorsAllowedOrigins: corsOrigins,
		ServerID:           getEnv("SERVER_ID", ""),
	}
	if v := os.Getenv("APP_TRUSTED_PROXIES"); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Name:            getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "imagecache.db")),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "snapfood:"),
	}

	cacheCfg := CacheConfig{
		TTL:           getEnvDuration("CACHE_TTL", 24*time.Hour),
		MaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 100),
		SweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", time.Hour),
	}

	difyCfg := DifyConfig{
		BaseURL:       getEnv("DIFY_BASE_URL", "https://api.dify.ai/v1"),
		MatcherAPIKey: getEnv("DIFY_API_KEY_MATCHER", ""),
		// No timeout existed upstream; 15s is a deliberate addition.
		RequestTimeout: getEnvDuration("DIFY_REQUEST_TIMEOUT", 15*time.Second),
	}

	retryCfg := RetryConfig{
		MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		BaseDelay:   getEnvDuration("RETRY_BASE_DELAY", time.Second),
		Multiplier:  getEnvFloat("RETRY_MULTIPLIER", 2.0),
	}

	prefetchCfg := PrefetchConfig{
		Workers:   getEnvInt("PREFETCH_WORKERS", 8),
		QueueSize: getEnvInt("PREFETCH_QUEUE_SIZE", 256),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Cache:    cacheCfg,
		Dify:     difyCfg,
		Retry:    retryCfg,
		Prefetch: prefetchCfg,
	}

	Global = cfg
	return cfg, nil
}
