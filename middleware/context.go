package middleware

import (
	"context"

	"github.com/llmgate/llmgate/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// PrincipalKey is the context key for the authenticated principal
	PrincipalKey contextKey = "principal"

	// RawTokenKey is the context key for the bearer token the principal
	// was derived from. Logout needs the original string to blacklist it.
	RawTokenKey contextKey = "raw_token"
)

// GetPrincipalFromContext retrieves the authenticated principal from context
func GetPrincipalFromContext(ctx context.Context) *models.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if principal, ok := val.(*models.Principal); ok {
			return principal
		}
	}
	return nil
}

// WithPrincipal adds an authenticated principal to the context
func WithPrincipal(ctx context.Context, principal *models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// GetRawTokenFromContext retrieves the bearer token from context
func GetRawTokenFromContext(ctx context.Context) string {
	if val := ctx.Value(RawTokenKey); val != nil {
		if token, ok := val.(string); ok {
			return token
		}
	}
	return ""
}

// WithRawToken adds the bearer token to the context
func WithRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, RawTokenKey, token)
}
