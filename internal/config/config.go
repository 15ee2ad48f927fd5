package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string

	// Local JWT auth
	JWTSecret         string
	AccessTokenExpiry time.Duration

	// Completion provider (OpenAI-compatible endpoint)
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMRatePerSec  float64 // client-side cap on completion calls
	LLMTemperature float64

	// Session state cache
	SessionTTL time.Duration

	// Optional YAML override for the aptitude topic list
	TopicsFile string

	// Provider health probe interval (0 disables the job)
	HealthCheckInterval time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3001"),
		MongoURI: getEnv("MONGODB_URI", ""),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		AccessTokenExpiry: getDurationEnv("ACCESS_TOKEN_EXPIRY", 24*time.Hour),

		LLMBaseURL:     getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gemini-2.5-flash"),
		LLMTimeout:     getDurationEnv("LLM_TIMEOUT", 120*time.Second),
		LLMRatePerSec:  getFloatEnv("LLM_RATE_PER_SEC", 2),
		LLMTemperature: getFloatEnv("LLM_TEMPERATURE", 0.7),

		SessionTTL: getDurationEnv("SESSION_TTL", 30*time.Minute),

		TopicsFile: getEnv("APTITUDE_TOPICS_FILE", ""),

		HealthCheckInterval: getDurationEnv("HEALTH_CHECK_INTERVAL", 10*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
