package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services/auth"
	"github.com/llmgate/llmgate/services/ratelimit"
	"github.com/llmgate/llmgate/utils"
)

// AuthFlows is the slice of the auth service the handler drives
type AuthFlows interface {
	Register(ctx context.Context, p auth.RegisterParams) (*auth.AuthResult, error)
	Login(ctx context.Context, p auth.LoginParams) (*auth.AuthResult, error)
	Logout(ctx context.Context, rawToken, sessionID string) error
}

// Throttle guards the credential endpoints against guessing traffic
type Throttle interface {
	Allow(ctx context.Context, scope, clientKey string) *ratelimit.Result
}

// AuthHandler handles registration, login and logout requests
type AuthHandler struct {
	flows    AuthFlows
	throttle Throttle
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(flows AuthFlows, throttle Throttle, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		flows:    flows,
		throttle: throttle,
		logger:   logger,
	}
}

// RegisterRequest is the tenant bootstrap payload
type RegisterRequest struct {
	TenantName string `json:"tenant_name" validate:"required,min=2,max=100"`
	Domain     string `json:"domain" validate:"required,min=3,max=253"`
	Username   string `json:"username" validate:"required,min=2,max=64"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the credential login payload
type LoginRequest struct {
	Domain   string `json:"domain" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LogoutRequest is the optional logout payload naming the session to end
type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

// AuthResponse is the body returned by register and login
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Tenant    *models.Tenant  `json:"tenant"`
	User      *models.User    `json:"user"`
	Session   *models.Session `json:"session"`
}

// HandleRegister bootstraps a tenant with its admin user and returns a
// session token for the new admin
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := utils.ClientIP(r)

	if res := h.throttle.Allow(ctx, ratelimit.ScopeRegister, client); !res.Allowed {
		_ = utils.WriteTooManyRequests(w, "too many registration attempts", map[string]interface{}{
			"limit": res.Limit,
		})
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.flows.Register(ctx, auth.RegisterParams{
		TenantName: req.TenantName,
		Domain:     req.Domain,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		UserAgent:  r.UserAgent(),
		IPAddress:  client,
		RequestID:  chimiddleware.GetReqID(ctx),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, authResponse(result))
}

// HandleLogin verifies credentials against the tenant resolved from the
// domain and returns a fresh session token
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := utils.ClientIP(r)

	if res := h.throttle.Allow(ctx, ratelimit.ScopeLogin, client); !res.Allowed {
		_ = utils.WriteTooManyRequests(w, "too many login attempts", map[string]interface{}{
			"limit": res.Limit,
		})
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid login request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.flows.Login(ctx, auth.LoginParams{
		Domain:    req.Domain,
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
		IPAddress: client,
		RequestID: chimiddleware.GetReqID(ctx),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, authResponse(result))
}

// HandleLogout blacklists the presented token and deletes the session
// named in the optional body. The token comes from the request context,
// so this only runs behind RequireAuth.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawToken := middleware.GetRawTokenFromContext(ctx)
	if rawToken == "" {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid logout request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	if err := h.flows.Logout(ctx, rawToken, req.SessionID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse{Message: "logged out"})
}

func authResponse(result *auth.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Tenant:    result.Tenant,
		User:      result.User,
		Session:   result.Session,
	}
}
