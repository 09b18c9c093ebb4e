package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/services/inference"
	"github.com/llmgate/llmgate/utils"
)

// InferenceProxy is the slice of the inference client the chat handler
// drives
type InferenceProxy interface {
	Chat(ctx context.Context, tenantID, userID string, req *inference.ChatRequest) (*inference.ChatResponse, error)
	ListModels(ctx context.Context, tenantID string) (*inference.ModelsResponse, error)
}

// ChatHandler proxies chat and model listing to the inference service
// under the caller's identity
type ChatHandler struct {
	proxy  InferenceProxy
	logger *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(proxy InferenceProxy, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		proxy:  proxy,
		logger: logger,
	}
}

// HandleChat forwards a completion request. The upstream wire shape is
// preserved, so the annotated reply is written without the data
// envelope the rest of the API uses.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req inference.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid chat request body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	resp, err := h.proxy.Chat(ctx, principal.TenantID, principal.User.ID, &req)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, resp)
}

// HandleListModels returns the models the inference service can serve,
// annotated with the calling tenant
func (h *ChatHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	resp, err := h.proxy.ListModels(ctx, principal.TenantID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, resp)
}
