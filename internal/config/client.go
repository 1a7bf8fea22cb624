package config

import (
	"fmt"
	"os"
	"time"
)

// ClientConfig holds configuration for the checkout client.
type ClientConfig struct {
	APIBaseURL    string
	APIKey        string
	Countdown     time.Duration
	MinInterval   time.Duration
	SubmitTimeout time.Duration
	ResumeStore   string // "memory" or "redis"
	Redis         RedisConfig
	Logger        LoggerConfig
}

// LoadClient loads checkout client configuration from environment variables.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		APIBaseURL:    getEnv("CHECKOUT_API_URL", "http://localhost:8080"),
		APIKey:        getEnv("API_KEY", ""),
		Countdown:     getEnvAsDuration("CHECKOUT_COUNTDOWN", 5*time.Second),
		MinInterval:   getEnvAsDuration("CHECKOUT_MIN_INTERVAL", 2*time.Second),
		SubmitTimeout: getEnvAsDuration("CHECKOUT_SUBMIT_TIMEOUT", 15*time.Second),
		ResumeStore:   getEnv("CHECKOUT_RESUME_STORE", defaultResumeStore()),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// defaultResumeStore picks redis when an address is configured, since an
// in-memory store does not outlive a single checkout process.
func defaultResumeStore() string {
	if os.Getenv("REDIS_ADDR") != "" {
		return "redis"
	}
	return "memory"
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("checkout API URL is required")
	}

	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if c.Countdown < 0 {
		return fmt.Errorf("checkout countdown cannot be negative")
	}

	if c.MinInterval < 0 {
		return fmt.Errorf("checkout min interval cannot be negative")
	}

	if c.SubmitTimeout <= 0 {
		return fmt.Errorf("checkout submit timeout must be positive")
	}

	if c.ResumeStore != "memory" && c.ResumeStore != "redis" {
		return fmt.Errorf("invalid resume store: %s (must be memory or redis)", c.ResumeStore)
	}

	if c.ResumeStore == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required for the redis resume store")
	}

	return c.Logger.Validate()
}
