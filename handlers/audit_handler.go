package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/utils"
)

// AuditTrail is the read side of the audit service
type AuditTrail interface {
	List(ctx context.Context, tenantID string) ([]*models.AuditEvent, error)
}

// AuditRecorder accepts events for asynchronous recording. Handlers that
// mutate directory state record the change themselves; auth flow events
// are recorded inside the auth service.
type AuditRecorder interface {
	Record(event *models.AuditEvent)
}

// AuditHandler serves the tenant audit trail
type AuditHandler struct {
	trail  AuditTrail
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(trail AuditTrail, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		trail:  trail,
		logger: logger,
	}
}

// AuditEventsResponse is the audit trail listing
type AuditEventsResponse struct {
	Events []*models.AuditEvent `json:"events"`
	Count  int                  `json:"count"`
}

// HandleListEvents returns the caller's tenant trail, newest first
func (h *AuditHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	events, err := h.trail.List(r.Context(), principal.TenantID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}

	_ = utils.WriteOK(w, AuditEventsResponse{Events: events, Count: len(events)})
}
