package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llmgate/llmgate/utils"
)

// StorePinger reports whether the credential store is reachable
type StorePinger interface {
	Ping(ctx context.Context) error
}

// UpstreamPinger reports whether the inference service is reachable
type UpstreamPinger interface {
	Heartbeat(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	store    StorePinger
	upstream UpstreamPinger
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Either dependency may be
// nil; a nil check reports healthy.
func NewHealthHandler(store StorePinger, upstream UpstreamPinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:    store,
		upstream: upstream,
		logger:   logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Probes the credential store and the inference service concurrently
// and reports 503 when either is unreachable
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var storeErr, upstreamErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if h.store != nil {
			storeErr = h.store.Ping(gctx)
		}
		return nil
	})
	g.Go(func() error {
		if h.upstream != nil {
			upstreamErr = h.upstream.Heartbeat(gctx)
		}
		return nil
	})
	_ = g.Wait()

	checks := make(map[string]string)
	allHealthy := true

	if storeErr != nil {
		h.logger.Warn("store health check failed", zap.Error(storeErr))
		checks["store"] = "unhealthy"
		allHealthy = false
	} else {
		checks["store"] = "healthy"
	}

	if upstreamErr != nil {
		h.logger.Warn("inference health check failed", zap.Error(upstreamErr))
		checks["inference"] = "unhealthy"
		allHealthy = false
	} else {
		checks["inference"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
