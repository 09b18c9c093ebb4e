// Package app wires the gateway's services together. Dependencies is
// the single composition point: everything downstream of main receives
// its collaborators from here.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/config"
	"github.com/llmgate/llmgate/handlers"
	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/services/audit"
	"github.com/llmgate/llmgate/services/auth"
	"github.com/llmgate/llmgate/services/directory"
	"github.com/llmgate/llmgate/services/inference"
	"github.com/llmgate/llmgate/services/ratelimit"
	"github.com/llmgate/llmgate/services/token"
	"github.com/llmgate/llmgate/store"
)

// devSecret signs tokens when no JWT secret is configured. Config
// validation only lets that happen in development.
const devSecret = "llmgate-development-secret"

// auditStopTimeout bounds how long shutdown waits for the audit queue
// to drain.
const auditStopTimeout = 10 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Store  store.KV
	Logger *zap.Logger

	// Services
	Directory *directory.Service
	Issuer    *token.Issuer
	Verifier  *token.Verifier
	Gate      *auth.Gate
	Flows     *auth.Service
	Inference *inference.Client
	Throttle  handlers.Throttle
	Audit     *audit.Service

	// HTTP layer
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
	TenantHandler  *handlers.TenantHandler
	UserHandler    *handlers.UserHandler
	SessionHandler *handlers.SessionHandler
	AuditHandler   *handlers.AuditHandler
	ChatHandler    *handlers.ChatHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP()

	logger.Info("all dependencies initialized")
	return deps, nil
}

// initStore connects to the credential store and verifies the
// connection before anything depends on it.
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	kv, err := store.NewRedis(cfg.Redis.URL, cfg.Redis.PingTimeout)
	if err != nil {
		return err
	}

	if err := kv.Ping(ctx); err != nil {
		_ = kv.Close()
		return fmt.Errorf("store ping failed: %w", err)
	}

	d.Store = kv
	d.Logger.Info("credential store connected", zap.String("url", cfg.Redis.URL))
	return nil
}

// initServices builds the domain services on top of the store.
func (d *Dependencies) initServices(cfg *config.Config) error {
	secret := cfg.Auth.Secret
	if secret == "" {
		d.Logger.Warn("JWT secret not set, using development default")
		secret = devSecret
	}

	d.Directory = directory.NewService(d.Store, d.Logger, cfg.Auth.BcryptCost)
	d.Issuer = token.NewIssuer(secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	d.Verifier = token.NewVerifier(secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.ClockSkew, cfg.Auth.TokenTTL)
	d.Gate = auth.NewGate(d.Verifier, d.Directory, d.Directory, d.Directory, d.Logger)
	d.Inference = inference.NewClient(inference.Config{
		BaseURL: cfg.Inference.BaseURL,
		Timeout: cfg.Inference.Timeout,
	}, d.Logger)

	d.Audit = audit.NewService(d.Store, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
		EventTTL:    cfg.Audit.EventTTL,
	})

	// When the trail is disabled the service still answers List calls,
	// but nothing records into it.
	var recorder auth.AuditRecorder
	if cfg.Audit.Enabled {
		if err := d.Audit.Start(); err != nil {
			return fmt.Errorf("failed to start audit trail: %w", err)
		}
		recorder = d.Audit
	} else {
		d.Logger.Warn("audit trail disabled")
	}

	d.Flows = auth.NewService(d.Directory, d.Issuer, recorder, d.Logger)

	if cfg.RateLimit.Enabled {
		d.Throttle = ratelimit.NewLimiter(d.Store, d.Logger, cfg.RateLimit.Attempts, cfg.RateLimit.Window)
	} else {
		d.Logger.Warn("rate limiting disabled")
		d.Throttle = allowAllThrottle{}
	}

	d.Logger.Info("services initialized")
	return nil
}

// initHTTP builds the middleware and handlers over the services.
func (d *Dependencies) initHTTP() {
	var recorder middleware.AuditRecorder
	var changeRecorder handlers.AuditRecorder
	if d.Config.Audit.Enabled {
		recorder = d.Audit
		changeRecorder = d.Audit
	}

	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Gate, recorder, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Flows, d.Throttle, d.Logger)
	d.TenantHandler = handlers.NewTenantHandler(d.Directory, changeRecorder, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Directory, changeRecorder, d.Logger)
	d.SessionHandler = handlers.NewSessionHandler(d.Directory, d.Logger)
	d.AuditHandler = handlers.NewAuditHandler(d.Audit, d.Logger)
	d.ChatHandler = handlers.NewChatHandler(d.Inference, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.Store, d.Inference, d.Logger)
}

// allowAllThrottle admits every request. Used when rate limiting is
// disabled.
type allowAllThrottle struct{}

func (allowAllThrottle) Allow(context.Context, string, string) *ratelimit.Result {
	return &ratelimit.Result{Allowed: true, Remaining: 1, Limit: 0}
}

// Close gracefully shuts down all dependencies.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil && d.Config.Audit.Enabled {
		if err := d.Audit.Stop(auditStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit trail: %w", err))
		} else {
			d.Logger.Info("audit trail drained")
		}
	}

	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		} else {
			d.Logger.Info("credential store closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
