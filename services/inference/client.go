// Package inference proxies chat and model-list requests to the local
// inference service and annotates responses with the calling identity.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/internal/observability/metrics"
	"github.com/llmgate/llmgate/services"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 120 * time.Second
)

// Config holds the upstream connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP client for the inference service. All calls share
// one client-level timeout; a slow upstream surfaces as an external
// error, never a hang.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client, filling in the local-service defaults.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Chat forwards a completion request and annotates the reply with the
// calling tenant and user. Streaming is not implemented upstream; the
// flag is cleared before forwarding and the caller gets one blocking
// response.
func (c *Client) Chat(ctx context.Context, tenantID, userID string, req *ChatRequest) (*ChatResponse, error) {
	forward := *req
	forward.Stream = false

	body, err := json.Marshal(&forward)
	if err != nil {
		return nil, services.WrapInternal("failed to encode chat request", err)
	}

	start := time.Now()
	respBody, err := c.do(ctx, http.MethodPost, "/api/chat", bytes.NewReader(body))
	metrics.ObserveUpstream("chat", resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	var out ChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, services.WrapExternal("failed to decode inference response", err)
	}

	out.TenantID = tenantID
	out.UserID = userID

	c.logger.Debug("chat completion proxied",
		zap.String("model", out.Model),
		zap.String("tenant_id", tenantID),
		zap.Int("eval_count", out.EvalCount),
		zap.Duration("duration", time.Since(start)))
	return &out, nil
}

// ListModels fetches the upstream model catalog, annotated with the
// calling tenant.
func (c *Client) ListModels(ctx context.Context, tenantID string) (*ModelsResponse, error) {
	start := time.Now()
	respBody, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	metrics.ObserveUpstream("models", resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	var out ModelsResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, services.WrapExternal("failed to decode model listing", err)
	}

	out.TenantID = tenantID
	return &out, nil
}

// Heartbeat checks that the inference service answers at all. Used by
// the readiness probe.
func (c *Client) Heartbeat(ctx context.Context) error {
	start := time.Now()
	_, err := c.do(ctx, http.MethodGet, "/", nil)
	metrics.ObserveUpstream("heartbeat", resultLabel(err), time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, services.WrapInternal("failed to build upstream request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return nil, services.WrapExternal("inference service timed out", err)
		}
		return nil, services.WrapExternal("inference service unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.WrapExternal("failed to read inference response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, services.WrapExternal(
			fmt.Sprintf("inference service returned status %d", resp.StatusCode),
			errors.New(strings.TrimSpace(string(respBody))))
	}

	return respBody, nil
}

func isClientTimeout(err error) bool {
	var ue interface{ Timeout() bool }
	return errors.As(err, &ue) && ue.Timeout()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
