package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Host string
	Port string
	Env  string

	// Auth
	APIKey string

	// Storage
	StorageBackend string
	SQLitePath     string
	DatabaseURL    string

	// Redis (optional query cache)
	RedisURL        string
	CacheTTLSeconds int

	// Gemini AI
	GeminiAPIKey          string
	GeminiModel           string
	GeminiConcurrentReqs  int
	GatewayTimeoutSeconds int
	AnalyzeRatePerMinute  int

	// Calendar
	Timezone string

	// HTTP
	MaxBodyBytes       int64
	CORSAllowedOrigins []string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Host:                  getEnvOrDefault("HEALTHBRIDGE_HOST", "0.0.0.0"),
		Port:                  getEnvOrDefault("HEALTHBRIDGE_PORT", "8099"),
		Env:                   getEnvOrDefault("ENV", "development"),
		APIKey:                mustGetEnv("HEALTHBRIDGE_API_KEY"),
		StorageBackend:        strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", "sqlite")),
		SQLitePath:            getEnvOrDefault("HEALTHBRIDGE_DB", "./data/health.db"),
		DatabaseURL:           getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:              getEnvOrDefault("REDIS_URL", ""),
		CacheTTLSeconds:       getEnvAsIntOrDefault("CACHE_TTL_SECONDS", 300),
		GeminiAPIKey:          getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 2),
		GatewayTimeoutSeconds: getEnvAsIntOrDefault("GATEWAY_TIMEOUT_SECONDS", 90),
		AnalyzeRatePerMinute:  getEnvAsIntOrDefault("ANALYZE_RATE_PER_MINUTE", 10),
		Timezone:              getEnvOrDefault("HEALTHBRIDGE_TIMEZONE", "UTC"),
		MaxBodyBytes:          int64(getEnvAsIntOrDefault("MAX_BODY_BYTES", 10<<20)),
		CORSAllowedOrigins:    splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             getEnvOrDefault("LOG_FORMAT", ""),
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
		if cfg.Env == "development" {
			cfg.LogFormat = "console"
		}
	}

	return cfg
}

// Validate checks cross-field consistency that Load cannot express with defaults.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("HEALTHBRIDGE_DB must be set when STORAGE_BACKEND=sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (want sqlite or postgres)", c.StorageBackend)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid HEALTHBRIDGE_TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.GatewayTimeoutSeconds <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT_SECONDS must be positive")
	}
	if c.GeminiConcurrentReqs <= 0 {
		return fmt.Errorf("GEMINI_CONCURRENT_REQUESTS must be positive")
	}
	if c.AnalyzeRatePerMinute <= 0 {
		return fmt.Errorf("ANALYZE_RATE_PER_MINUTE must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Location returns the zone used to decide what "today" is. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
