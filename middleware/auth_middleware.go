package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/internal/observability/metrics"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/services/token"
	"github.com/llmgate/llmgate/utils"
)

// PrincipalValidator defines the interface for resolving a bearer token
// into an authenticated principal
type PrincipalValidator interface {
	// Validate verifies a token and resolves the tenant and user behind it
	Validate(ctx context.Context, tokenString string) (*models.Principal, error)
}

// AuditRecorder accepts auth events for asynchronous recording
type AuditRecorder interface {
	Record(event *models.AuditEvent)
}

// AuthMiddleware provides authentication and authorization middleware
// functionality
type AuthMiddleware struct {
	validator PrincipalValidator
	audit     AuditRecorder
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. The audit recorder may be
// nil; rejected tokens are then counted in metrics but not written to the
// trail.
func NewAuthMiddleware(validator PrincipalValidator, audit AuditRecorder, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		audit:     audit,
		logger:    logger,
	}
}

// RequireAuth is a middleware that requires a valid bearer token. On success
// the resolved principal is attached to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimiddleware.GetReqID(ctx)

		tokenString := extractBearerToken(r)
		if tokenString == "" {
			m.logger.Warn("missing bearer token",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			metrics.ObserveAuthDecision("denied", "missing_token")
			_ = utils.WriteUnauthorized(w, "missing or invalid authorization")
			return
		}

		principal, err := m.validator.Validate(ctx, tokenString)
		if err != nil {
			reason := "token_invalid"
			if err == services.ErrTokenExpired {
				reason = "token_expired"
			}
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.String("reason", reason),
				zap.Error(err))
			metrics.ObserveAuthDecision("denied", reason)
			m.recordRejectedToken(r, tokenString, reason)
			_ = utils.WriteUnauthorized(w, deniedMessage(err))
			return
		}

		metrics.ObserveAuthDecision("allowed", "ok")
		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("tenant_id", principal.TenantID),
			zap.String("user_id", principal.User.ID))

		ctx = WithPrincipal(ctx, principal)
		ctx = WithRawToken(ctx, tokenString)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recordRejectedToken attributes a rejected token to the tenant it claims to
// belong to. The claim is unverified, so this only ever feeds the audit
// trail, never an authorization decision.
func (m *AuthMiddleware) recordRejectedToken(r *http.Request, tokenString, reason string) {
	if m.audit == nil {
		return
	}
	claims, err := token.ParseUnverified(tokenString)
	if err != nil || claims.TenantID == "" {
		return
	}
	event := models.NewAuditEvent(claims.TenantID, models.AuditActionTokenRejected).
		WithUser(claims.Subject).
		WithDetail(reason).
		WithRequest(chimiddleware.GetReqID(r.Context()), utils.ClientIP(r), r.UserAgent())
	m.audit.Record(event)
}

// deniedMessage surfaces the domain error message without the type prefix
func deniedMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "invalid or expired token"
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
