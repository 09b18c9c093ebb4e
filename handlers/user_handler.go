package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/services/directory"
	"github.com/llmgate/llmgate/utils"
)

// UserDirectory is the slice of the directory the user handler uses.
// Every lookup is scoped by the caller's tenant id.
type UserDirectory interface {
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	GetUser(ctx context.Context, tenantID, userID string) (*models.User, error)
	GetAllUsers(ctx context.Context, tenantID string) ([]*models.User, error)
	CreateUser(ctx context.Context, tenantID, username, email, password string, role models.UserRole) (*models.User, error)
	UpdateUser(ctx context.Context, tenantID, userID string, update directory.UserUpdate) (*models.User, error)
}

// UserHandler handles user management within the caller's tenant
type UserHandler struct {
	directory UserDirectory
	audit     AuditRecorder
	logger    *zap.Logger
}

// NewUserHandler creates a new UserHandler. The audit recorder may be
// nil.
func NewUserHandler(dir UserDirectory, audit AuditRecorder, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		directory: dir,
		audit:     audit,
		logger:    logger,
	}
}

// CreateUserRequest is the payload for adding a user to the caller's
// tenant. Role defaults to user when omitted.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user"`
}

// UpdateUserRequest carries the mutable user fields. Nil fields are left
// unchanged; the email is immutable.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=2,max=64"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin user"`
	Status   *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// MeResponse is the current-user payload
type MeResponse struct {
	User   *models.User   `json:"user"`
	Tenant *models.Tenant `json:"tenant"`
	Scopes []string       `json:"scopes"`
}

// UsersResponse is the tenant user listing
type UsersResponse struct {
	Users []*models.User `json:"users"`
	Count int            `json:"count"`
}

// HandleCurrentUser returns the authenticated user and their tenant
func (h *UserHandler) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
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

	_ = utils.WriteOK(w, MeResponse{
		User:   principal.User,
		Tenant: tenant,
		Scopes: principal.Scopes,
	})
}

// HandleListUsers returns every user of the caller's tenant
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	users, err := h.directory.GetAllUsers(r.Context(), principal.TenantID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	_ = utils.WriteOK(w, UsersResponse{Users: users, Count: len(users)})
}

// HandleCreateUser adds a user to the caller's tenant
func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid create user body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.directory.CreateUser(ctx, principal.TenantID, req.Username, req.Email, req.Password, models.UserRole(req.Role))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.recordChange(r, principal, models.AuditActionUserCreated, user.ID)
	_ = utils.WriteCreated(w, user)
}

// HandleGetUser returns one user of the caller's tenant. Admins may read
// anyone; a plain user may only read themselves.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID != principal.User.ID && !principal.IsAdmin() {
		_ = utils.WriteForbidden(w, services.ErrInsufficientScope.Message)
		return
	}

	user, err := h.directory.GetUser(r.Context(), principal.TenantID, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}

// HandleUpdateUser merges the given fields into a user of the caller's
// tenant
func (h *UserHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid user update body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	update := directory.UserUpdate{
		Username: req.Username,
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		update.Role = &role
	}
	if req.Status != nil {
		status := models.UserStatus(*req.Status)
		update.Status = &status
	}

	user, err := h.directory.UpdateUser(ctx, principal.TenantID, chi.URLParam(r, "id"), update)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.recordChange(r, principal, models.AuditActionUserUpdated, user.ID)
	_ = utils.WriteOK(w, user)
}

// recordChange writes a directory mutation to the audit trail. The
// detail names the affected user, the event user is the acting admin.
func (h *UserHandler) recordChange(r *http.Request, principal *models.Principal, action models.AuditAction, subjectID string) {
	if h.audit == nil {
		return
	}
	event := models.NewAuditEvent(principal.TenantID, action).
		WithUser(principal.User.ID).
		WithDetail(subjectID).
		WithRequest(chimiddleware.GetReqID(r.Context()), utils.ClientIP(r), r.UserAgent())
	h.audit.Record(event)
}
