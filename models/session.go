package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an advisory login record. Sessions exist for audit;
// token validity never depends on them.
type Session struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	LoginTime time.Time `json:"login_time"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a new Session instance with a fixed time-to-live
func NewSession(tenantID, userID string, loginTime time.Time, userAgent string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		LoginTime: loginTime,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
