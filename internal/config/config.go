package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults mirror the deployment profile the assistant ships with: a small
// host, an embedded database file next to the binary, and the Nebius vision
// endpoint.
const (
	DefaultNebiusBaseURL     = "https://api.studio.nebius.com/v1/"
	DefaultNebiusModel       = "Qwen/Qwen2.5-VL-72B-Instruct"
	DefaultSQLitePath        = "users.db"
	DefaultServerPort        = "8080"
	DefaultEstimatorTimeout  = 30 * time.Second
	DefaultCacheSize         = 50
	DefaultImageMaxDimension = 800
	DefaultImageJPEGQuality  = 75
	DefaultRateLimit         = "5-S"
	DefaultOpenAPIPath       = "api/openapi.yaml"
)

// Config holds application configuration.
type Config struct {
	// Credentials. Both are required; the process refuses to start without
	// them rather than running degraded.
	BotToken     string
	NebiusAPIKey string

	// Estimator oracle.
	NebiusBaseURL    string
	NebiusModel      string
	EstimatorTimeout time.Duration

	// Analysis cache and image preprocessing.
	CacheSize         int
	ImageMaxDimension int
	ImageJPEGQuality  int

	// Storage. A non-empty DatabaseURL selects PostgreSQL; otherwise the
	// embedded engine at SQLitePath is used.
	DatabaseURL string
	SQLitePath  string

	// HTTP facade.
	ServerPort         string
	ServiceToken       string
	RateLimit          string
	RedisURL           string
	CORSAllowedOrigins string
	OpenAPIPath        string

	// Observability.
	DebugLogging   bool
	TracingEnabled bool
	OTLPEndpoint   string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real deployments set the
// environment directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:           getEnv("BOT_TOKEN", ""),
		NebiusAPIKey:       getEnv("NEBIUS_API_KEY", ""),
		NebiusBaseURL:      getEnv("NEBIUS_BASE_URL", DefaultNebiusBaseURL),
		NebiusModel:        getEnv("NEBIUS_MODEL", DefaultNebiusModel),
		EstimatorTimeout:   time.Duration(getEnvInt("ESTIMATOR_TIMEOUT_SECONDS", int(DefaultEstimatorTimeout/time.Second))) * time.Second,
		CacheSize:          getEnvInt("CACHE_SIZE", DefaultCacheSize),
		ImageMaxDimension:  getEnvInt("IMAGE_MAX_DIMENSION", DefaultImageMaxDimension),
		ImageJPEGQuality:   getEnvInt("IMAGE_JPEG_QUALITY", DefaultImageJPEGQuality),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", DefaultSQLitePath),
		ServerPort:         getEnv("PORT", DefaultServerPort),
		ServiceToken:       getEnv("SERVICE_TOKEN", ""),
		RateLimit:          getEnv("RATE_LIMIT", DefaultRateLimit),
		RedisURL:           getEnv("REDIS_URL", ""),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		OpenAPIPath:        getEnv("OPENAPI_PATH", DefaultOpenAPIPath),
		DebugLogging:       getEnvBool("DEBUG_LOGGING", false),
		TracingEnabled:     getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	if cfg.NebiusAPIKey == "" {
		return nil, fmt.Errorf("NEBIUS_API_KEY is required")
	}

	if cfg.EstimatorTimeout <= 0 {
		return nil, fmt.Errorf("ESTIMATOR_TIMEOUT_SECONDS must be positive")
	}

	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("CACHE_SIZE must be positive")
	}

	if cfg.ImageMaxDimension <= 0 {
		return nil, fmt.Errorf("IMAGE_MAX_DIMENSION must be positive")
	}

	if cfg.ImageJPEGQuality < 1 || cfg.ImageJPEGQuality > 100 {
		return nil, fmt.Errorf("IMAGE_JPEG_QUALITY must be between 1 and 100")
	}

	return cfg, nil
}

// LoadStorage reads only the storage configuration, for tools that never
// talk to the oracle and must not require its credentials.
func LoadStorage() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", DefaultSQLitePath),
	}
}

// UsePostgres reports whether the networked storage backend is selected.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
