package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Winner store
	Store StoreConfig

	// Market data provider
	Provider ProviderConfig

	// Watchlist is the ordered set of tickers evaluated every run.
	// Order is significant: earlier tickers win exact ties.
	Watchlist []string

	// Scheduler
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// StoreConfig describes where winner records live
type StoreConfig struct {
	Table          string
	PartitionKey   string
	TTLDays        int
	ReconcileLimit int
}

// ProviderConfig holds market data API configuration
type ProviderConfig struct {
	BaseURL        string
	APIKey         string
	UserAgent      string
	Timeout        time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RatePerMinute  int
}

// SchedulerConfig holds cron expressions (with seconds field, UTC)
type SchedulerConfig struct {
	CatchUpSchedule string
	CleanupSchedule string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "topmover"),
			User:            getEnv("DB_USER", "topmover"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Store: StoreConfig{
			Table:          getEnv("WINNERS_TABLE", "daily_winners"),
			PartitionKey:   getEnv("PARTITION_KEY_VALUE", "WATCHLIST"),
			TTLDays:        getEnvAsInt("RECORD_TTL_DAYS", 365),
			ReconcileLimit: getEnvAsInt("RECONCILE_LIMIT", 90),
		},

		Provider: ProviderConfig{
			BaseURL:        strings.TrimRight(getEnv("STOCK_API_BASE_URL", "https://api.polygon.io"), "/"),
			APIKey:         getEnv("STOCK_API_KEY", ""),
			UserAgent:      getEnv("STOCK_API_USER_AGENT", "topmover-pipeline/1.0"),
			Timeout:        getEnvAsDuration("STOCK_API_TIMEOUT", "20s"),
			MaxAttempts:    getEnvAsInt("STOCK_API_MAX_ATTEMPTS", 3),
			RetryBaseDelay: getEnvAsDuration("STOCK_API_RETRY_BASE_DELAY", "1.5s"),
			RatePerMinute:  getEnvAsInt("STOCK_API_RATE_PER_MINUTE", 0),
		},

		Scheduler: SchedulerConfig{
			CatchUpSchedule: getEnv("CATCHUP_SCHEDULE", "0 30 6 * * TUE-SAT"),
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 0 3 * * *"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	watchlist := ParseWatchlist(getEnv("WATCHLIST", ""))
	if len(watchlist) == 0 {
		if path := getEnv("WATCHLIST_FILE", ""); path != "" {
			fromFile, err := LoadWatchlistFile(path)
			if err != nil {
				return nil, fmt.Errorf("load watchlist file: %w", err)
			}
			watchlist = fromFile
		}
	}
	cfg.Watchlist = watchlist

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Store.TTLDays <= 0 {
		return fmt.Errorf("RECORD_TTL_DAYS must be positive")
	}

	return nil
}

// ValidateIngestion checks the settings only ingestion runs need.
// The read-side API can run without a watchlist or provider key.
func (c *Config) ValidateIngestion() error {
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("WATCHLIST is empty")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("STOCK_API_KEY is empty")
	}
	if c.Provider.MaxAttempts < 1 {
		return fmt.Errorf("STOCK_API_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// ParseWatchlist splits a comma-separated ticker list.
// Entries are trimmed and uppercased; blanks are dropped; order is kept.
func ParseWatchlist(raw string) []string {
	tickers := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if ticker == "" {
			continue
		}
		tickers = append(tickers, ticker)
	}
	return tickers
}

// watchlistFile is the YAML layout of WATCHLIST_FILE
type watchlistFile struct {
	Tickers []string `yaml:"tickers"`
}

// LoadWatchlistFile reads an ordered watchlist from a YAML file
func LoadWatchlistFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wf watchlistFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return ParseWatchlist(strings.Join(wf.Tickers, ",")), nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
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
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
