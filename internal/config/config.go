package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort         string
	FrontendURL        string
	OpenAIKey          string
	AIModel            string
	AIBaseURL          string
	ExtractionTimeout  time.Duration
	VocabularyFile     string
	OIDCIssuer         string
	OIDCJWKSURL        string
	SessionJoinSecret  string
	RedisURL           string
	RateLimit          string
	RabbitMQURL        string
	RabbitMQPrefetch   int
	DatabaseURL        string
	TaskAPIURL         string
	TaskAPITokenURL    string
	TaskAPIClientID    string
	TaskAPISecret      string
	EnableHSTS         bool
	ServerDebugMode    bool
	WorkerDebugMode    bool
	OTELEnabled        bool
	OTELEndpoint       string
}

// Load loads configuration from the environment. A local .env file is
// applied first when present so development setups need no exported vars.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
		AIModel:           getEnv("AI_MODEL", ""),
		AIBaseURL:         getEnv("AI_BASE_URL", ""),
		ExtractionTimeout: getEnvDuration("EXTRACTION_TIMEOUT", 30*time.Second),
		VocabularyFile:    getEnv("TAG_VOCABULARY_FILE", ""),
		OIDCIssuer:        getEnv("OIDC_ISSUER", ""),
		OIDCJWKSURL:       getEnv("OIDC_JWKS_URL", ""),
		SessionJoinSecret: getEnv("SESSION_JOIN_SECRET", ""),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RateLimit:         getEnv("RATE_LIMIT", "10-M"),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:  getEnvInt("RABBITMQ_PREFETCH", 1),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		TaskAPIURL:        getEnv("TASK_API_URL", ""),
		TaskAPITokenURL:   getEnv("TASK_API_TOKEN_URL", ""),
		TaskAPIClientID:   getEnv("TASK_API_CLIENT_ID", ""),
		TaskAPISecret:     getEnv("TASK_API_CLIENT_SECRET", ""),
		EnableHSTS:        getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:   getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode:   getEnvBool("WORKER_DEBUG_MODE", false),
		OTELEnabled:       getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for extraction")
	}

	if cfg.DatabaseURL == "" && cfg.TaskAPIURL == "" {
		return nil, fmt.Errorf("either DATABASE_URL or TASK_API_URL is required for task persistence")
	}

	return cfg, nil
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
