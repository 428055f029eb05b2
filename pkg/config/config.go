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
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Storage layout
	Storage StorageConfig

	// Database (optional fact sink)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	AlphaVantage AlphaVantageConfig

	// Pipeline
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// StorageConfig describes the partitioned table folders under DataRoot
type StorageConfig struct {
	DataRoot          string
	AcquisitionFolder string
	TransformedFolder string
	ConfigFolder      string
	TickersFile       string
	PipelineFile      string
}

// AcquisitionPath returns the folder raw API tables are written to
func (s StorageConfig) AcquisitionPath() string {
	return filepath.Join(s.DataRoot, s.AcquisitionFolder)
}

// TransformedPath returns the folder fact tables are written to
func (s StorageConfig) TransformedPath() string {
	return filepath.Join(s.DataRoot, s.TransformedFolder)
}

// TickersPath resolves the ticker list relative to the config folder
func (s StorageConfig) TickersPath() string {
	return resolve(s.ConfigFolder, s.TickersFile)
}

// PipelinePath resolves the pipeline YAML relative to the config folder
func (s StorageConfig) PipelinePath() string {
	return resolve(s.ConfigFolder, s.PipelineFile)
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

// Enabled reports whether a Postgres sink is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// AlphaVantageConfig holds AlphaVantage API configuration
type AlphaVantageConfig struct {
	APIKey     string
	BaseURL    string
	DailyLimit int     // free tier: 25 calls per day
	RPS        float64 // client-side pacing
	Timeout    time.Duration
}

// PipelineConfig holds runtime knobs of the transform pipeline
type PipelineConfig struct {
	Workers          int
	ScheduleAcquire  string
	SchedulePipeline string
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Storage: StorageConfig{
			DataRoot:          getEnv("DATA_ROOT", "./data"),
			AcquisitionFolder: getEnv("ACQUISITION_FOLDER", "acquisition"),
			TransformedFolder: getEnv("TRANSFORMED_FOLDER", "transformed"),
			ConfigFolder:      getEnv("CONFIG_FOLDER", "./config"),
			TickersFile:       getEnv("TICKERS_FILE", "tickers.csv"),
			PipelineFile:      getEnv("PIPELINE_CONFIG", "pipeline.yaml"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:     getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:    getEnv("ALPHA_VANTAGE_URL", "https://www.alphavantage.co/query"),
			DailyLimit: getEnvAsInt("ALPHA_VANTAGE_DAILY_LIMIT", 25),
			RPS:        getEnvAsFloat("ALPHA_VANTAGE_RPS", 1),
			Timeout:    getEnvAsDuration("ALPHA_VANTAGE_TIMEOUT", "30s"),
		},

		Pipeline: PipelineConfig{
			Workers:          getEnvAsInt("WORKERS", 4),
			ScheduleAcquire:  getEnv("SCHEDULE_ACQUIRE", "0 0 6 * * *"),
			SchedulePipeline: getEnv("SCHEDULE_PIPELINE", "0 30 6 * * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("WORKERS must be >= 1, got %d", c.Pipeline.Workers)
	}

	if c.AlphaVantage.DailyLimit < 0 {
		return fmt.Errorf("ALPHA_VANTAGE_DAILY_LIMIT must be >= 0, got %d", c.AlphaVantage.DailyLimit)
	}

	if c.AlphaVantage.RPS <= 0 {
		return fmt.Errorf("ALPHA_VANTAGE_RPS must be > 0")
	}

	if c.Storage.DataRoot == "" {
		return fmt.Errorf("DATA_ROOT is required")
	}

	return nil
}

// RequireAPIKey is checked by commands that talk to AlphaVantage
func (c *Config) RequireAPIKey() error {
	if c.AlphaVantage.APIKey == "" {
		return fmt.Errorf("ALPHA_VANTAGE_API_KEY is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

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

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
