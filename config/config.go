package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Inference     InferenceConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds credential store connection configuration
type RedisConfig struct {
	URL         string
	PingTimeout time.Duration
}

// AuthConfig holds token issuing and validation configuration.
// Secret is the process-wide HMAC signing key, injected into the issuer
// and gate at construction time.
type AuthConfig struct {
	Secret       string
	Issuer       string
	Audience     string
	TokenTTL     time.Duration
	ClockSkew    time.Duration
	BlacklistTTL time.Duration
	BcryptCost   int
}

// InferenceConfig holds the upstream LLM service configuration
type InferenceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RateLimitConfig holds the login/register throttle configuration
type RateLimitConfig struct {
	Enabled  bool
	Attempts int
	Window   time.Duration
}

// AuditConfig holds the auth-event trail configuration
type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	WorkerCount int
	EventTTL    time.Duration
}

// CORSConfig holds cross-origin policy configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists (.env when run from the repo root)
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PingTimeout: getEnvAsDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			Secret:       getEnv("JWT_SECRET", ""),
			Issuer:       getEnv("JWT_ISSUER", "llmgate"),
			Audience:     getEnv("JWT_AUDIENCE", "llmgate-api"),
			TokenTTL:     getEnvAsDuration("JWT_TOKEN_TTL", 4*time.Hour),
			ClockSkew:    getEnvAsDuration("JWT_CLOCK_SKEW", 15*time.Second),
			BlacklistTTL: getEnvAsDuration("JWT_BLACKLIST_TTL", 4*time.Hour),
			BcryptCost:   getEnvAsInt("BCRYPT_COST", 10),
		},
		Inference: InferenceConfig{
			BaseURL: getEnv("INFERENCE_BASE_URL", "http://localhost:11434"),
			Timeout: getEnvAsDuration("INFERENCE_TIMEOUT", 120*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Attempts: getEnvAsInt("RATE_LIMIT_ATTEMPTS", 10),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Audit: AuditConfig{
			Enabled:     getEnvAsBool("AUDIT_ENABLED", true),
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 1024),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 2),
			EventTTL:    getEnvAsDuration("AUDIT_EVENT_TTL", 720*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}

	// Token signing secret (required outside development, strong in production)
	if !c.IsDevelopment() && c.Auth.Secret == "" {
		return fmt.Errorf("JWT secret is required outside development")
	}
	if c.IsProduction() && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}

	if c.Inference.BaseURL == "" {
		return fmt.Errorf("inference base URL is required")
	}
	if c.Inference.Timeout <= 0 {
		return fmt.Errorf("inference timeout must be positive")
	}

	if c.RateLimit.Enabled && c.RateLimit.Attempts <= 0 {
		return fmt.Errorf("rate limit attempts must be positive when enabled")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
