package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services/directory"
	"github.com/llmgate/llmgate/utils"
)

// TenantDirectory is the slice of the directory the tenant handler uses
type TenantDirectory interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, id string, update directory.TenantUpdate) (*models.Tenant, error)
}

// TenantHandler serves the caller's own tenant record. The tenant id
// always comes from the principal, never from the request, so a caller
// can only ever see or change their own tenant.
type TenantHandler struct {
	directory TenantDirectory
	audit     AuditRecorder
	logger    *zap.Logger
}

// NewTenantHandler creates a new TenantHandler. The audit recorder may
// be nil.
func NewTenantHandler(dir TenantDirectory, audit AuditRecorder, logger *zap.Logger) *TenantHandler {
	return &TenantHandler{
		directory: dir,
		audit:     audit,
		logger:    logger,
	}
}

// UpdateTenantRequest carries the mutable tenant fields. Nil fields are
// left unchanged; the domain is immutable.
type UpdateTenantRequest struct {
	Name     *string           `json:"name" validate:"omitempty,min=2,max=100"`
	Status   *string           `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	Settings map[string]string `json:"settings"`
}

// HandleGetTenant returns the tenant the caller belongs to
func (h *TenantHandler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	tenant, err := h.directory.GetTenant(r.Context(), principal.TenantID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, tenant)
}

// HandleUpdateTenant merges the given fields into the caller's tenant
func (h *TenantHandler) HandleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid tenant update body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	update := directory.TenantUpdate{
		Name:     req.Name,
		Settings: req.Settings,
	}
	if req.Status != nil {
		status := models.TenantStatus(*req.Status)
		update.Status = &status
	}

	tenant, err := h.directory.UpdateTenant(ctx, principal.TenantID, update)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.recordChange(r, principal)
	_ = utils.WriteOK(w, tenant)
}

func (h *TenantHandler) recordChange(r *http.Request, principal *models.Principal) {
	if h.audit == nil {
		return
	}
	event := models.NewAuditEvent(principal.TenantID, models.AuditActionTenantUpdated).
		WithUser(principal.User.ID).
		WithRequest(chimiddleware.GetReqID(r.Context()), utils.ClientIP(r), r.UserAgent())
	h.audit.Record(event)
}
