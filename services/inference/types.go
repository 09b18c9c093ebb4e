package inference

import "time"

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the chat payload forwarded to the inference service.
// Stream is accepted for wire compatibility but the upstream call is
// always blocking.
type ChatRequest struct {
	Model    string                 `json:"model" validate:"required"`
	Messages []ChatMessage          `json:"messages" validate:"required,min=1,dive"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ChatResponse is the upstream completion plus the identity annotation
// added by the proxy.
type ChatResponse struct {
	Model              string      `json:"model"`
	CreatedAt          time.Time   `json:"created_at"`
	Message            ChatMessage `json:"message"`
	Done               bool        `json:"done"`
	TotalDuration      int64       `json:"total_duration,omitempty"`
	LoadDuration       int64       `json:"load_duration,omitempty"`
	PromptEvalCount    int         `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64       `json:"prompt_eval_duration,omitempty"`
	EvalCount          int         `json:"eval_count,omitempty"`
	EvalDuration       int64       `json:"eval_duration,omitempty"`

	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
}

// ModelInfo describes one model the inference service can serve.
type ModelInfo struct {
	Name       string    `json:"name"`
	Model      string    `json:"model,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Digest     string    `json:"digest,omitempty"`
}

// ModelsResponse is the annotated model listing.
type ModelsResponse struct {
	Models   []ModelInfo `json:"models"`
	TenantID string      `json:"tenantId"`
}
