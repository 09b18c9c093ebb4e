package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/internal/observability/metrics"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/utils"
)

// TenantHeader is the header clients must present on tenant-scoped routes.
// Its value has to match the tenant claim of the presented token exactly.
const TenantHeader = "X-Tenant-Id"

// RequireTenantHeader is a middleware that enforces tenant isolation.
// This should be called after RequireAuth.
//
// A missing header and a mismatched header are both rejected with 403, but
// with distinct messages so clients can tell a forgotten header from an
// attempted cross-tenant access.
func (m *AuthMiddleware) RequireTenantHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := chimiddleware.GetReqID(ctx)

		principal := GetPrincipalFromContext(ctx)
		if principal == nil {
			m.logger.Error("principal not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "authentication required")
			return
		}

		header := r.Header.Get(TenantHeader)
		if header == "" {
			m.logger.Warn("tenant header missing",
				zap.String("request_id", requestID),
				zap.String("tenant_id", principal.TenantID))
			metrics.ObserveAuthDecision("denied", "tenant_header_missing")
			_ = utils.WriteForbidden(w, services.ErrTenantHeaderMissing.Message)
			return
		}

		if header != principal.TenantID {
			m.logger.Warn("tenant header does not match token claim",
				zap.String("request_id", requestID),
				zap.String("header_tenant_id", header),
				zap.String("claim_tenant_id", principal.TenantID))
			metrics.ObserveAuthDecision("denied", "tenant_mismatch")
			_ = utils.WriteForbidden(w, services.ErrTenantMismatch.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireScope is a middleware that requires the principal to carry the
// given capability tag. This should be called after RequireAuth.
func (m *AuthMiddleware) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := chimiddleware.GetReqID(ctx)

			principal := GetPrincipalFromContext(ctx)
			if principal == nil {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, "authentication required")
				return
			}

			if !principal.HasScope(scope) {
				m.logger.Warn("insufficient scope",
					zap.String("request_id", requestID),
					zap.String("required_scope", scope),
					zap.Strings("principal_scopes", principal.Scopes))
				metrics.ObserveAuthDecision("denied", "insufficient_scope")
				_ = utils.WriteForbidden(w, services.ErrInsufficientScope.Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
