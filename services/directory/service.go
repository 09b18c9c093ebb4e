// Package directory implements tenant and user administration over the
// credential store: CRUD with secondary indexes, password hashing and
// verification, session records and the token blacklist.
package directory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/store"
)

const (
	// sessionTTL is the fixed lifetime of advisory session records.
	sessionTTL = 4 * time.Hour

	// DefaultBlacklistTTL covers the full validity window of an issued
	// token, so blacklist entries self-expire once the token they revoke
	// could no longer validate anyway.
	DefaultBlacklistTTL = 4 * time.Hour
)

// Service provides tenant and user directory operations backed by the
// credential store. Uniqueness of domains and tenant-scoped emails is
// guarded by atomic set-if-not-exists writes on the index keys; there are
// no multi-key transactions and no retries.
type Service struct {
	kv         store.KV
	logger     *zap.Logger
	bcryptCost int
}

// NewService creates a new directory service
func NewService(kv store.KV, logger *zap.Logger, bcryptCost int) *Service {
	return &Service{
		kv:         kv,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// CreateTenant registers a new tenant. The domain index write is the
// uniqueness guard; losing that race surfaces as a conflict.
func (s *Service) CreateTenant(ctx context.Context, name, domain string, settings map[string]string) (*models.Tenant, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if name == "" || domain == "" {
		return nil, services.ErrInvalidInput
	}

	tenant := models.NewTenant(name, domain, settings)

	data, err := json.Marshal(tenant)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal tenant", err)
	}

	created, err := s.kv.SetNX(ctx, store.TenantDomainKey(domain), tenant.ID, 0)
	if err != nil {
		return nil, services.WrapInternal("failed to register domain index", err)
	}
	if !created {
		s.logger.Warn("domain already registered", zap.String("domain", domain))
		return nil, services.ErrDuplicateDomain
	}

	if err := s.kv.Set(ctx, store.TenantKey(tenant.ID), string(data)); err != nil {
		return nil, services.WrapInternal("failed to store tenant", err)
	}
	if err := s.kv.SAdd(ctx, store.TenantSetKey, tenant.ID); err != nil {
		return nil, services.WrapInternal("failed to index tenant", err)
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", tenant.ID),
		zap.String("domain", tenant.Domain))

	return tenant, nil
}

// GetTenant loads a tenant by id
func (s *Service) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	data, err := s.kv.Get(ctx, store.TenantKey(id))
	if err != nil {
		if err == store.ErrKeyNotFound {
			return nil, services.ErrTenantNotFound
		}
		return nil, services.WrapInternal("failed to load tenant", err)
	}

	var tenant models.Tenant
	if err := json.Unmarshal([]byte(data), &tenant); err != nil {
		return nil, services.WrapInternal("failed to unmarshal tenant", err)
	}
	return &tenant, nil
}

// GetTenantByDomain resolves the domain index, then loads the tenant.
// A stale index entry pointing at a deleted record reports not found.
func (s *Service) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	id, err := s.kv.Get(ctx, store.TenantDomainKey(domain))
	if err != nil {
		if err == store.ErrKeyNotFound {
			return nil, services.ErrTenantNotFound
		}
		return nil, services.WrapInternal("failed to resolve domain index", err)
	}
	return s.GetTenant(ctx, id)
}

// TenantUpdate holds the mutable tenant fields. Nil fields are left
// unchanged; the id and domain are immutable.
type TenantUpdate struct {
	Name     *string
	Status   *models.TenantStatus
	Settings map[string]string
}

// UpdateTenant merges the given fields into an existing tenant and stamps
// the update time.
func (s *Service) UpdateTenant(ctx context.Context, id string, update TenantUpdate) (*models.Tenant, error) {
	tenant, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		tenant.Name = *update.Name
	}
	if update.Status != nil {
		tenant.Status = *update.Status
	}
	if update.Settings != nil {
		tenant.Settings = update.Settings
	}
	tenant.UpdatedAt = time.Now()

	data, err := json.Marshal(tenant)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal tenant", err)
	}
	if err := s.kv.Set(ctx, store.TenantKey(tenant.ID), string(data)); err != nil {
		return nil, services.WrapInternal("failed to store tenant", err)
	}

	s.logger.Info("tenant updated", zap.String("tenant_id", tenant.ID))
	return tenant, nil
}
