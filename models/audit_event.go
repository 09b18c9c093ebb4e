package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of auth event being recorded
type AuditAction string

const (
	AuditActionRegister      AuditAction = "register"
	AuditActionLogin         AuditAction = "login"
	AuditActionLoginFailed   AuditAction = "login_failed"
	AuditActionLogout        AuditAction = "logout"
	AuditActionTokenRejected AuditAction = "token_rejected"
	AuditActionUserCreated   AuditAction = "user_created"
	AuditActionUserUpdated   AuditAction = "user_updated"
	AuditActionTenantUpdated AuditAction = "tenant_updated"
)

// AuditEvent represents an auth trail entry
type AuditEvent struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenant_id"`
	UserID    string      `json:"user_id,omitempty"`
	Action    AuditAction `json:"action"`
	Detail    string      `json:"detail,omitempty"`
	IPAddress string      `json:"ip_address,omitempty"`
	UserAgent string      `json:"user_agent,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAuditEvent creates a new AuditEvent instance
func NewAuditEvent(tenantID string, action AuditAction) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// WithUser sets the user ID
func (e *AuditEvent) WithUser(userID string) *AuditEvent {
	e.UserID = userID
	return e
}

// WithDetail sets a free-form detail message
func (e *AuditEvent) WithDetail(detail string) *AuditEvent {
	e.Detail = detail
	return e
}

// WithRequest sets request metadata
func (e *AuditEvent) WithRequest(requestID, ipAddress, userAgent string) *AuditEvent {
	e.RequestID = requestID
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	return e
}
