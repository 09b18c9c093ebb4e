package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus represents the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant represents an isolated customer account in the multi-tenant system.
// The domain is unique across all tenants; the ID is immutable once created.
type Tenant struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Domain    string            `json:"domain"`
	Status    TenantStatus      `json:"status"`
	Settings  map[string]string `json:"settings,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewTenant creates a new Tenant instance
func NewTenant(name, domain string, settings map[string]string) *Tenant {
	now := time.Now()
	return &Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		Domain:    domain,
		Status:    TenantStatusActive,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive returns true if the tenant may authenticate new sessions
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
