package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/llmgate/llmgate/middleware"
	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/utils"
)

// testPrincipal builds a principal the way RequireAuth would
func testPrincipal(role models.UserRole) *models.Principal {
	return models.NewPrincipal(&models.User{
		ID:       "user-1",
		TenantID: "tenant-1",
		Username: "alice",
		Email:    "alice@acme.com",
		Role:     role,
		Status:   models.UserStatusActive,
	})
}

// authedRequest builds a request carrying the principal, as it arrives
// behind the auth middleware
func authedRequest(method, target string, body io.Reader, principal *models.Principal) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if principal != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
	}
	return req
}

// withURLParam injects a chi route parameter, as the router would
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var resp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

// captureRecorder collects audit events synchronously for assertions
type captureRecorder struct {
	events []*models.AuditEvent
}

func (c *captureRecorder) Record(event *models.AuditEvent) {
	c.events = append(c.events, event)
}
