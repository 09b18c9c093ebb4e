package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/llmgate/llmgate/config"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services/ratelimit"
	"github.com/llmgate/llmgate/store"
)

func TestNewDependencies(t *testing.T) {
	t.Run("successful initialization with all components", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		logger := zaptest.NewLogger(t)

		// Skip if redis not available
		if !isStoreAvailable(cfg) {
			t.Skip("redis not available")
		}

		deps, err := NewDependencies(ctx, cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, deps)

		// Infrastructure
		assert.NotNil(t, deps.Config)
		assert.NotNil(t, deps.Store)
		assert.NotNil(t, deps.Logger)

		// Services
		assert.NotNil(t, deps.Directory)
		assert.NotNil(t, deps.Issuer)
		assert.NotNil(t, deps.Verifier)
		assert.NotNil(t, deps.Gate)
		assert.NotNil(t, deps.Flows)
		assert.NotNil(t, deps.Inference)
		assert.NotNil(t, deps.Throttle)
		assert.NotNil(t, deps.Audit)

		// HTTP layer
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AuthHandler)
		assert.NotNil(t, deps.TenantHandler)
		assert.NotNil(t, deps.UserHandler)
		assert.NotNil(t, deps.SessionHandler)
		assert.NotNil(t, deps.AuditHandler)
		assert.NotNil(t, deps.ChatHandler)
		assert.NotNil(t, deps.HealthHandler)

		err = deps.Close(ctx)
		assert.NoError(t, err)
	})

	t.Run("store connection failure", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		cfg.Redis.URL = "not-a-redis-url"
		logger := zaptest.NewLogger(t)

		deps, err := NewDependencies(ctx, cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize credential store")
	})
}

func TestInitServices(t *testing.T) {
	t.Run("wires the full service graph", func(t *testing.T) {
		cfg := testConfig(t)
		deps := memoryDeps(t, cfg)

		require.NoError(t, deps.initServices(cfg))
		deps.initHTTP()

		assert.NotNil(t, deps.Directory)
		assert.NotNil(t, deps.Gate)
		assert.NotNil(t, deps.Flows)
		assert.NotNil(t, deps.AuthHandler)
		assert.NotNil(t, deps.HealthHandler)

		_, ok := deps.Throttle.(*ratelimit.Limiter)
		assert.True(t, ok, "rate limiting enabled should install the real limiter")

		assert.NoError(t, deps.Close(context.Background()))
	})

	t.Run("rate limiting disabled installs the pass-through throttle", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.RateLimit.Enabled = false
		cfg.Audit.Enabled = false
		deps := memoryDeps(t, cfg)

		require.NoError(t, deps.initServices(cfg))

		res := deps.Throttle.Allow(context.Background(), ratelimit.ScopeLogin, "10.0.0.1")
		require.NotNil(t, res)
		assert.True(t, res.Allowed)
	})

	t.Run("audit disabled still serves the trail read side", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Audit.Enabled = false
		deps := memoryDeps(t, cfg)

		require.NoError(t, deps.initServices(cfg))
		require.NotNil(t, deps.Audit)

		events, err := deps.Audit.List(context.Background(), "tenant-1")
		require.NoError(t, err)
		assert.Empty(t, events)

		assert.NoError(t, deps.Close(context.Background()))
	})

	t.Run("missing secret falls back to the development default", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.Secret = ""
		cfg.Audit.Enabled = false
		deps := memoryDeps(t, cfg)

		require.NoError(t, deps.initServices(cfg))

		raw, _, err := deps.Issuer.Issue(&models.User{
			ID:       "user-1",
			TenantID: "tenant-1",
			Role:     models.RoleAdmin,
		})
		require.NoError(t, err)

		claims, err := deps.Verifier.Verify(raw)
		require.NoError(t, err)
		assert.Equal(t, "tenant-1", claims.TenantID)
	})
}

func TestDependenciesClose(t *testing.T) {
	t.Run("graceful shutdown", func(t *testing.T) {
		ctx := context.Background()
		cfg := testConfig(t)
		deps := memoryDeps(t, cfg)

		require.NoError(t, deps.initServices(cfg))
		deps.initHTTP()

		err := deps.Close(ctx)
		assert.NoError(t, err)

		// Second close errors on the stopped audit trail but must not panic
		_ = deps.Close(ctx)
	})
}

// Test helpers

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: config.RedisConfig{
			URL:         "redis://localhost:6379/15",
			PingTimeout: 2 * time.Second,
		},
		Auth: config.AuthConfig{
			Secret:       "test-secret-long-enough-for-hmac-use",
			Issuer:       "llmgate",
			Audience:     "llmgate-api",
			TokenTTL:     time.Hour,
			ClockSkew:    15 * time.Second,
			BlacklistTTL: time.Hour,
			BcryptCost:   4,
		},
		Inference: config.InferenceConfig{
			BaseURL: "http://localhost:11434",
			Timeout: 30 * time.Second,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:  true,
			Attempts: 10,
			Window:   time.Minute,
		},
		Audit: config.AuditConfig{
			Enabled:     true,
			BufferSize:  16,
			WorkerCount: 1,
			EventTTL:    time.Hour,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Observability: config.ObservabilityConfig{
			LogLevel:       "debug",
			LogFormat:      "json",
			MetricsEnabled: false,
		},
	}
}

// memoryDeps builds a container over the in-memory store so the init
// stages after initStore can run without redis.
func memoryDeps(t *testing.T, cfg *config.Config) *Dependencies {
	t.Helper()
	return &Dependencies{
		Config: cfg,
		Store:  store.NewMemory(),
		Logger: zaptest.NewLogger(t),
	}
}

func isStoreAvailable(cfg *config.Config) bool {
	kv, err := store.NewRedis(cfg.Redis.URL, cfg.Redis.PingTimeout)
	if err != nil {
		return false
	}
	defer kv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return kv.Ping(ctx) == nil
}
