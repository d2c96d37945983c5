package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Storage    StorageConfig
	Generation GenerationConfig
	Logging    LogConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig

	// File is an optional YAML overrides file
	File string `envconfig:"CONFIG_FILE"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"127.0.0.1"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LLMConfig selects the generation backend.
type LLMConfig struct {
	Provider   string        `envconfig:"LLM_PROVIDER" default:"anthropic"`
	BaseURL    string        `envconfig:"LLM_BASE_URL"`
	MaxRetries int           `envconfig:"LLM_MAX_RETRIES" default:"2"`
	Timeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"0s"`
	// APIKey seeds the session credential when none is stored
	APIKey string `envconfig:"LLM_API_KEY"`

	BreakerEnabled bool          `envconfig:"LLM_BREAKER_ENABLED" default:"true"`
	BreakerMinReqs uint32        `envconfig:"LLM_BREAKER_MIN_REQUESTS" default:"5"`
	BreakerRatio   float64       `envconfig:"LLM_BREAKER_FAILURE_RATIO" default:"0.8"`
	BreakerTimeout time.Duration `envconfig:"LLM_BREAKER_TIMEOUT" default:"30s"`
}

// StorageConfig holds session persistence configuration.
type StorageConfig struct {
	Backend        string        `envconfig:"STORAGE_BACKEND" default:"file"`
	Dir            string        `envconfig:"STORAGE_DIR"`
	Backups        int           `envconfig:"STORAGE_BACKUPS" default:"5"`
	BackupInterval time.Duration `envconfig:"STORAGE_BACKUP_INTERVAL" default:"1h"`
	Debounce       time.Duration `envconfig:"PERSIST_DEBOUNCE" default:"250ms"`
}

// GenerationConfig tunes the generation pipeline.
type GenerationConfig struct {
	MaxTokens int64         `envconfig:"GEN_MAX_TOKENS" default:"4096"`
	Timeout   time.Duration `envconfig:"GEN_TIMEOUT" default:"0s"`
	History   int           `envconfig:"GEN_HISTORY" default:"32"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// CORSConfig holds cross-origin configuration.
type CORSConfig struct {
	AllowOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "127.0.0.1",
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			Provider:       "anthropic",
			MaxRetries:     2,
			BreakerEnabled: true,
			BreakerMinReqs: 5,
			BreakerRatio:   0.8,
			BreakerTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend:        "file",
			Backups:        5,
			BackupInterval: time.Hour,
			Debounce:       250 * time.Millisecond,
		},
		Generation: GenerationConfig{
			MaxTokens: 4096,
			History:   32,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "", "anthropic", "openai", "ollama":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.Storage.Backend {
	case "", "file", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Generation.MaxTokens < 0 {
		return fmt.Errorf("GEN_MAX_TOKENS must not be negative")
	}
	if c.LLM.BreakerRatio <= 0 || c.LLM.BreakerRatio > 1 {
		return fmt.Errorf("LLM_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	return nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
