package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
				assert.Equal(t, 5*time.Second, cfg.Redis.PingTimeout)
				assert.Equal(t, "llmgate", cfg.Auth.Issuer)
				assert.Equal(t, "llmgate-api", cfg.Auth.Audience)
				assert.Equal(t, 4*time.Hour, cfg.Auth.TokenTTL)
				assert.Equal(t, 15*time.Second, cfg.Auth.ClockSkew)
				assert.Equal(t, 10, cfg.Auth.BcryptCost)
				assert.Equal(t, "http://localhost:11434", cfg.Inference.BaseURL)
				assert.Equal(t, 120*time.Second, cfg.Inference.Timeout)
				assert.True(t, cfg.RateLimit.Enabled)
				assert.Equal(t, 10, cfg.RateLimit.Attempts)
				assert.Equal(t, time.Minute, cfg.RateLimit.Window)
				assert.True(t, cfg.Audit.Enabled)
				assert.Equal(t, 1024, cfg.Audit.BufferSize)
				assert.Equal(t, []string{"http://localhost:*"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.Equal(t, "json", cfg.Observability.LogFormat)
			},
		},
		{
			name: "production configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"JWT_SECRET":  "a-production-secret-of-sufficient-length",
				"SERVER_PORT": "9000",
				"REDIS_URL":   "redis://cache.internal:6379/1",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "redis://cache.internal:6379/1", cfg.Redis.URL)
			},
		},
		{
			name: "custom timeouts",
			envVars: map[string]string{
				"SERVER_READ_TIMEOUT":  "60s",
				"SERVER_WRITE_TIMEOUT": "90s",
				"JWT_TOKEN_TTL":        "2h",
				"INFERENCE_TIMEOUT":    "30s",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
				assert.Equal(t, 30*time.Second, cfg.Inference.Timeout)
			},
		},
		{
			name: "observability configuration",
			envVars: map[string]string{
				"LOG_LEVEL":       "debug",
				"LOG_FORMAT":      "console",
				"METRICS_ENABLED": "false",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
				assert.False(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "rate limit and audit toggles",
			envVars: map[string]string{
				"RATE_LIMIT_ENABLED": "false",
				"AUDIT_ENABLED":      "false",
				"AUDIT_WORKER_COUNT": "4",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.RateLimit.Enabled)
				assert.False(t, cfg.Audit.Enabled)
				assert.Equal(t, 4, cfg.Audit.WorkerCount)
			},
		},
		{
			name: "CORS origins from env",
			envVars: map[string]string{
				"CORS_ALLOWED_ORIGINS": "https://app.example.com, https://admin.example.com",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t,
					[]string{"https://app.example.com", "https://admin.example.com"},
					cfg.CORS.AllowedOrigins)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "SERVER_PORT env var when PORT not set",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
				"SERVER_PORT": "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
			},
		},
		{
			name: "production without JWT secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "production with short JWT secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
				"JWT_SECRET":  "short",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			// Create config
			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "valid development config",
			mutate: func(c *Config) {},
		},
		{
			name:   "missing redis URL",
			mutate: func(c *Config) { c.Redis.URL = "" },
			errMsg: "redis URL is required",
		},
		{
			name: "missing secret outside development",
			mutate: func(c *Config) {
				c.Environment = "staging"
				c.Auth.Secret = ""
			},
			errMsg: "JWT secret is required outside development",
		},
		{
			name: "short secret in production",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.Auth.Secret = "short"
			},
			errMsg: "JWT secret must be at least 32 bytes in production",
		},
		{
			name:   "zero token TTL",
			mutate: func(c *Config) { c.Auth.TokenTTL = 0 },
			errMsg: "token TTL must be positive",
		},
		{
			name:   "bcrypt cost out of range",
			mutate: func(c *Config) { c.Auth.BcryptCost = 32 },
			errMsg: "bcrypt cost must be between 4 and 31",
		},
		{
			name:   "missing inference base URL",
			mutate: func(c *Config) { c.Inference.BaseURL = "" },
			errMsg: "inference base URL is required",
		},
		{
			name: "rate limit enabled with zero attempts",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = true
				c.RateLimit.Attempts = 0
			},
			errMsg: "rate limit attempts must be positive when enabled",
		},
		{
			name:   "missing log level",
			mutate: func(c *Config) { c.Observability.LogLevel = "" },
			errMsg: "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"production", "production", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsDevelopment())
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}

	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "TEST_INT", "42", 10, 42},
		{"empty value", "TEST_INT", "", 10, 10},
		{"invalid int", "TEST_INT", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsInt(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "TEST_BOOL", "true", false, true},
		{"false", "TEST_BOOL", "false", true, false},
		{"empty value", "TEST_BOOL", "", true, true},
		{"invalid bool", "TEST_BOOL", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsBool(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "TEST_DURATION", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "TEST_DURATION", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "TEST_DURATION", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsDuration(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue []string
		want         []string
	}{
		{"single value", "TEST_SLICE", "https://a.example.com", []string{"*"}, []string{"https://a.example.com"}},
		{"multiple with spaces", "TEST_SLICE", "a, b ,c", []string{"*"}, []string{"a", "b", "c"}},
		{"trailing comma", "TEST_SLICE", "a,b,", []string{"*"}, []string{"a", "b"}},
		{"empty value", "TEST_SLICE", "", []string{"*"}, []string{"*"}},
		{"only commas", "TEST_SLICE", ",,", []string{"*"}, []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsSlice(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

// validConfig returns a configuration that passes Validate in the
// development environment.
func validConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Redis: RedisConfig{
			URL:         "redis://localhost:6379/0",
			PingTimeout: 5 * time.Second,
		},
		Auth: AuthConfig{
			Secret:       "",
			Issuer:       "llmgate",
			Audience:     "llmgate-api",
			TokenTTL:     4 * time.Hour,
			ClockSkew:    15 * time.Second,
			BlacklistTTL: 4 * time.Hour,
			BcryptCost:   10,
		},
		Inference: InferenceConfig{
			BaseURL: "http://localhost:11434",
			Timeout: 120 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Attempts: 10,
			Window:   time.Minute,
		},
		Audit: AuditConfig{
			Enabled:     true,
			BufferSize:  1024,
			WorkerCount: 2,
			EventTTL:    720 * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}
