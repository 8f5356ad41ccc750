package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port    string
	LogMode string

	// Database configuration
	DatabaseURL   string
	DBAutoMigrate bool

	// Cognito configuration
	AWSRegion           string
	CognitoUserPoolID   string
	CognitoClientID     string
	CognitoClientSecret string

	// AI configuration
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIEmbeddingModel string
	AITimeout            time.Duration

	// Rate limiting, RateLimitMax requests per RateLimitWindow per user
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Load loads configuration from environment variables, reading a .env
// file in the working directory first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		LogMode:              getEnv("LOG_MODE", "development"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DBAutoMigrate:        getEnvAsBool("DB_AUTO_MIGRATE", true),
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		CognitoUserPoolID:    getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientID:      getEnv("COGNITO_CLIENT_ID", ""),
		CognitoClientSecret:  getEnv("COGNITO_CLIENT_SECRET", ""),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		AITimeout:            getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		RateLimitWindow:      getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:         getEnvAsInt("RATE_LIMIT_MAX", 100),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CognitoUserPoolID == "" {
		return nil, fmt.Errorf("COGNITO_USER_POOL_ID is required")
	}
	if cfg.CognitoClientID == "" {
		return nil, fmt.Errorf("COGNITO_CLIENT_ID is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}

	return cfg, nil
}

// CognitoEndpoint is the regional identity provider endpoint, used for
// reachability checks.
func (c *Config) CognitoEndpoint() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com", c.AWSRegion)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
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
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go duration strings ("90s") or plain milliseconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
