package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/services/token"
)

// TenantLookup resolves tenants during token validation.
type TenantLookup interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
}

// UserLookup resolves users during token validation.
type UserLookup interface {
	GetUser(ctx context.Context, tenantID, userID string) (*models.User, error)
}

// BlacklistChecker reports whether a token has been revoked.
type BlacklistChecker interface {
	IsTokenBlacklisted(ctx context.Context, rawToken string) (bool, error)
}

// Gate runs the token validation pipeline and resolves the caller into a
// Principal: verify signature and claims, check the blacklist, confirm
// the tenant and user still exist, derive scopes. It fails closed: a
// store failure anywhere in the pipeline reads as an invalid token.
//
// Account status is not re-checked here. Suspension takes effect at the
// next login; tokens already issued stay valid until expiry or blacklist.
type Gate struct {
	verifier  *token.Verifier
	tenants   TenantLookup
	users     UserLookup
	blacklist BlacklistChecker
	logger    *zap.Logger
}

// NewGate creates a Gate.
func NewGate(verifier *token.Verifier, tenants TenantLookup, users UserLookup, blacklist BlacklistChecker, logger *zap.Logger) *Gate {
	return &Gate{
		verifier:  verifier,
		tenants:   tenants,
		users:     users,
		blacklist: blacklist,
		logger:    logger,
	}
}

// Validate checks a raw bearer token and returns the caller's Principal.
// Failures return ErrTokenExpired or ErrInvalidToken; the specific reason
// is logged but never surfaced to the caller.
func (g *Gate) Validate(ctx context.Context, rawToken string) (*models.Principal, error) {
	claims, err := g.verifier.Verify(rawToken)
	if err != nil {
		return nil, err
	}

	revoked, err := g.blacklist.IsTokenBlacklisted(ctx, rawToken)
	if err != nil {
		g.logger.Warn("blacklist check failed, rejecting token", zap.Error(err))
		return nil, services.ErrInvalidToken
	}
	if revoked {
		g.logger.Info("rejected revoked token",
			zap.String("user_id", claims.Subject),
			zap.String("tenant_id", claims.TenantID))
		return nil, services.ErrInvalidToken
	}

	if _, err := g.tenants.GetTenant(ctx, claims.TenantID); err != nil {
		if !services.IsNotFoundError(err) {
			g.logger.Warn("tenant lookup failed, rejecting token",
				zap.Error(err),
				zap.String("tenant_id", claims.TenantID))
		}
		return nil, services.ErrInvalidToken
	}

	user, err := g.users.GetUser(ctx, claims.TenantID, claims.Subject)
	if err != nil {
		if !services.IsNotFoundError(err) {
			g.logger.Warn("user lookup failed, rejecting token",
				zap.Error(err),
				zap.String("user_id", claims.Subject),
				zap.String("tenant_id", claims.TenantID))
		}
		return nil, services.ErrInvalidToken
	}

	return models.NewPrincipal(user), nil
}
