package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional - result persistence only)
	Database DatabaseConfig

	// Redis (optional - provider response cache)
	Redis RedisConfig

	// External APIs
	DART  DARTConfig
	Naver NaverConfig

	// Scan defaults
	Scan ScanConfig

	// Logging
	LogLevel  string
	LogFormat string
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
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DARTConfig holds DART (전자공시) API configuration
// APIKey가 비어 있으면 펀더멘털 게이트는 항상 false로 평가된다 (fail closed)
type DARTConfig struct {
	APIKey  string
	BaseURL string
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	ChartBaseURL   string
	MarketBaseURL  string
	FinanceBaseURL string
}

// ScanConfig holds defaults for universe scans
type ScanConfig struct {
	Workers        int     // concurrent per-stock pipelines
	MinWinRate     float64 // percent, summaries below are dropped
	HorizonDays    int     // forward-return horizon (trading days)
	LookbackDays   int     // calendar days fetched before the window start
	PresetDir      string  // screen preset YAML directory
	ScheduleSpec   string  // cron spec for the nightly scan job
	SchedulePreset string  // preset name the nightly job runs
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8097"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
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

		// External APIs
		DART: DARTConfig{
			APIKey:  getEnv("DART_API_KEY", ""),
			BaseURL: getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
		},

		Naver: NaverConfig{
			ChartBaseURL:   getEnv("NAVER_CHART_BASE_URL", "https://fchart.stock.naver.com"),
			MarketBaseURL:  getEnv("NAVER_MARKET_BASE_URL", "https://stock.naver.com"),
			FinanceBaseURL: getEnv("NAVER_FINANCE_BASE_URL", "https://finance.naver.com"),
		},

		// Scan defaults
		Scan: ScanConfig{
			Workers:        getEnvAsInt("SCAN_WORKERS", 4),
			MinWinRate:     getEnvAsFloat("SCAN_MIN_WIN_RATE", 50.0),
			HorizonDays:    getEnvAsInt("SCAN_HORIZON_DAYS", 5),
			LookbackDays:   getEnvAsInt("SCAN_LOOKBACK_DAYS", 200),
			PresetDir:      getEnv("SCAN_PRESET_DIR", "config/presets"),
			ScheduleSpec:   getEnv("SCAN_SCHEDULE", "0 0 18 * * MON-FRI"),
			SchedulePreset: getEnv("SCAN_SCHEDULE_PRESET", ""),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.Workers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be >= 1")
	}

	if c.Scan.HorizonDays < 1 {
		return fmt.Errorf("SCAN_HORIZON_DAYS must be >= 1")
	}

	if c.Scan.MinWinRate < 0 || c.Scan.MinWinRate > 100 {
		return fmt.Errorf("SCAN_MIN_WIN_RATE must be in [0, 100]")
	}

	return nil
}

// HasDatabase reports whether result persistence is configured
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		fallback, _ := time.ParseDuration(defaultValue)
		return fallback
	}
	return value
}
