package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/utils"
)

// SessionDirectory is the slice of the directory the session handler
// uses
type SessionDirectory interface {
	GetSession(ctx context.Context, id string) (*models.Session, error)
}

// SessionHandler serves session inspection for tenant admins
type SessionHandler struct {
	directory SessionDirectory
	logger    *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(dir SessionDirectory, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		directory: dir,
		logger:    logger,
	}
}

// HandleGetSession returns one session. Sessions are keyed globally, so
// a session belonging to another tenant is reported as not found rather
// than forbidden.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	session, err := h.directory.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if session.TenantID != principal.TenantID {
		h.logger.Warn("cross-tenant session lookup",
			zap.String("tenant_id", principal.TenantID),
			zap.String("session_tenant_id", session.TenantID))
		_ = utils.WriteNotFound(w, services.ErrSessionNotFound.Message)
		return
	}

	_ = utils.WriteOK(w, session)
}
