// Package auth implements the authentication flows (register, login,
// logout) and the token validation gate that guards every protected
// route.
package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/services/token"
)

// Directory is the slice of the tenant/user directory the auth flows use.
type Directory interface {
	CreateTenant(ctx context.Context, name, domain string, settings map[string]string) (*models.Tenant, error)
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	CreateUser(ctx context.Context, tenantID, username, email, password string, role models.UserRole) (*models.User, error)
	GetUserByEmail(ctx context.Context, tenantID, email string) (*models.User, error)
	VerifyPassword(plaintext, hash string) bool
	CreateSession(ctx context.Context, tenantID, userID string, loginTime time.Time, userAgent string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	BlacklistToken(ctx context.Context, rawToken string, ttl time.Duration) error
}

// AuditRecorder accepts auth events for asynchronous recording.
type AuditRecorder interface {
	Record(event *models.AuditEvent)
}

// RegisterParams carries the input of the register flow.
type RegisterParams struct {
	TenantName string
	Domain     string
	Username   string
	Email      string
	Password   string
	UserAgent  string
	IPAddress  string
	RequestID  string
}

// LoginParams carries the input of the login flow.
type LoginParams struct {
	Domain    string
	Email     string
	Password  string
	UserAgent string
	IPAddress string
	RequestID string
}

// AuthResult is what a successful register or login returns. User is
// always sanitized.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Tenant    *models.Tenant
	User      *models.User
	Session   *models.Session
}

// Service implements the register, login and logout flows on top of the
// directory and the token issuer.
type Service struct {
	dir    Directory
	issuer *token.Issuer
	audit  AuditRecorder
	logger *zap.Logger
}

// NewService creates an auth flow Service. The audit recorder may be nil;
// the flows then skip trail recording.
func NewService(dir Directory, issuer *token.Issuer, audit AuditRecorder, logger *zap.Logger) *Service {
	return &Service{
		dir:    dir,
		issuer: issuer,
		audit:  audit,
		logger: logger,
	}
}

func (s *Service) record(event *models.AuditEvent) {
	if s.audit != nil {
		s.audit.Record(event)
	}
}

// Register provisions a tenant with its first admin user and signs them
// in. The domain must be unused; the first user always gets the admin
// role. There is no rollback: a user creation failure leaves the tenant
// in place, and the caller may retry with a different email.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*AuthResult, error) {
	tenant, err := s.dir.CreateTenant(ctx, p.TenantName, p.Domain, nil)
	if err != nil {
		return nil, err
	}

	user, err := s.dir.CreateUser(ctx, tenant.ID, p.Username, p.Email, p.Password, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("tenant registered but admin user creation failed",
			zap.String("tenant_id", tenant.ID),
			zap.Error(err))
		return nil, err
	}

	result, err := s.establishSession(ctx, tenant, user, p.UserAgent)
	if err != nil {
		return nil, err
	}

	s.record(models.NewAuditEvent(tenant.ID, models.AuditActionRegister).
		WithUser(user.ID).
		WithRequest(p.RequestID, p.IPAddress, p.UserAgent))
	s.logger.Info("tenant registered",
		zap.String("tenant_id", tenant.ID),
		zap.String("domain", tenant.Domain),
		zap.String("user_id", user.ID))
	return result, nil
}

// Login authenticates a user against their tenant's directory. An
// unknown email and a wrong password produce the same error, so a caller
// cannot probe which accounts exist.
func (s *Service) Login(ctx context.Context, p LoginParams) (*AuthResult, error) {
	tenant, err := s.dir.GetTenantByDomain(ctx, p.Domain)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		s.record(s.loginFailed(tenant.ID, p, "tenant suspended"))
		return nil, services.ErrTenantNotActive
	}

	user, err := s.dir.GetUserByEmail(ctx, tenant.ID, p.Email)
	if err != nil {
		if services.IsNotFoundError(err) {
			s.logger.Info("login attempt for unknown email",
				zap.String("tenant_id", tenant.ID))
			s.record(s.loginFailed(tenant.ID, p, "unknown email"))
			return nil, services.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.dir.VerifyPassword(p.Password, user.PasswordHash) {
		s.logger.Info("login attempt with wrong password",
			zap.String("tenant_id", tenant.ID),
			zap.String("user_id", user.ID))
		s.record(s.loginFailed(tenant.ID, p, "wrong password").WithUser(user.ID))
		return nil, services.ErrInvalidCredentials
	}

	if !user.IsActive() {
		s.record(s.loginFailed(tenant.ID, p, "user inactive").WithUser(user.ID))
		return nil, services.ErrUserNotActive
	}

	result, err := s.establishSession(ctx, tenant, user.Sanitized(), p.UserAgent)
	if err != nil {
		return nil, err
	}

	s.record(models.NewAuditEvent(tenant.ID, models.AuditActionLogin).
		WithUser(user.ID).
		WithRequest(p.RequestID, p.IPAddress, p.UserAgent))
	s.logger.Info("user logged in",
		zap.String("tenant_id", tenant.ID),
		zap.String("user_id", user.ID))
	return result, nil
}

func (s *Service) loginFailed(tenantID string, p LoginParams, detail string) *models.AuditEvent {
	return models.NewAuditEvent(tenantID, models.AuditActionLoginFailed).
		WithDetail(detail).
		WithRequest(p.RequestID, p.IPAddress, p.UserAgent)
}

// Logout revokes the raw token for the remainder of its validity and,
// when a session id is supplied, drops the session record. Idempotent.
func (s *Service) Logout(ctx context.Context, rawToken, sessionID string) error {
	// Size the blacklist entry from the token's own expiry; fall back to
	// the store's default window when the claims cannot be read.
	var ttl time.Duration
	claims, parseErr := token.ParseUnverified(rawToken)
	if parseErr == nil && claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}

	if err := s.dir.BlacklistToken(ctx, rawToken, ttl); err != nil {
		return err
	}

	if sessionID != "" {
		if err := s.dir.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
	}

	if parseErr == nil && claims.TenantID != "" {
		s.record(models.NewAuditEvent(claims.TenantID, models.AuditActionLogout).
			WithUser(claims.Subject))
	}

	s.logger.Info("user logged out", zap.String("session_id", sessionID))
	return nil
}

func (s *Service) establishSession(ctx context.Context, tenant *models.Tenant, user *models.User, userAgent string) (*AuthResult, error) {
	session, err := s.dir.CreateSession(ctx, tenant.ID, user.ID, time.Now(), userAgent)
	if err != nil {
		return nil, err
	}

	signed, claims, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
		Tenant:    tenant,
		User:      user,
		Session:   session,
	}, nil
}
