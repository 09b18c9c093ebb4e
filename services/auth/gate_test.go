package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/services/token"
)

const (
	gateSecret   = "gate-test-secret-key-0123456789abcdef"
	gateIssuer   = "llmgate"
	gateAudience = "llmgate-api"
	gateTTL      = 4 * time.Hour
	gateLeeway   = 15 * time.Second
)

// MockTenantLookup is a mock implementation of TenantLookup
type MockTenantLookup struct {
	mock.Mock
}

func (m *MockTenantLookup) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if tenant := args.Get(0); tenant != nil {
		return tenant.(*models.Tenant), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserLookup is a mock implementation of UserLookup
type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	args := m.Called(ctx, tenantID, userID)
	if user := args.Get(0); user != nil {
		return user.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockBlacklist is a mock implementation of BlacklistChecker
type MockBlacklist struct {
	mock.Mock
}

func (m *MockBlacklist) IsTokenBlacklisted(ctx context.Context, rawToken string) (bool, error) {
	args := m.Called(ctx, rawToken)
	return args.Bool(0), args.Error(1)
}

func gateFixture() (*Gate, *MockTenantLookup, *MockUserLookup, *MockBlacklist) {
	tenants := new(MockTenantLookup)
	users := new(MockUserLookup)
	blacklist := new(MockBlacklist)
	verifier := token.NewVerifier(gateSecret, gateIssuer, gateAudience, gateLeeway, gateTTL)
	gate := NewGate(verifier, tenants, users, blacklist, zap.NewNop())
	return gate, tenants, users, blacklist
}

func issueGateToken(t *testing.T, user *models.User) string {
	t.Helper()
	signed, _, err := token.NewIssuer(gateSecret, gateIssuer, gateAudience, gateTTL).Issue(user)
	require.NoError(t, err)
	return signed
}

func gateTenant() *models.Tenant {
	return &models.Tenant{
		ID:     "tenant-1",
		Name:   "Acme",
		Domain: "acme.com",
		Status: models.TenantStatusActive,
	}
}

func gateUser() *models.User {
	return &models.User{
		ID:       "user-1",
		TenantID: "tenant-1",
		Username: "alice",
		Email:    "alice@acme.com",
		Role:     models.RoleAdmin,
		Status:   models.UserStatusActive,
	}
}

func TestGateValidate_Success(t *testing.T) {
	gate, tenants, users, blacklist := gateFixture()
	signed := issueGateToken(t, gateUser())

	blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(false, nil)
	tenants.On("GetTenant", mock.Anything, "tenant-1").Return(gateTenant(), nil)
	users.On("GetUser", mock.Anything, "tenant-1", "user-1").Return(gateUser(), nil)

	principal, err := gate.Validate(context.Background(), signed)
	require.NoError(t, err)

	assert.Equal(t, "user-1", principal.User.ID)
	assert.Equal(t, "tenant-1", principal.TenantID)
	assert.ElementsMatch(t, []string{models.ScopeAdmin, models.ScopeUser}, principal.Scopes)

	blacklist.AssertExpectations(t)
	tenants.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestGateValidate_UserScopesOnly(t *testing.T) {
	gate, tenants, users, blacklist := gateFixture()
	member := gateUser()
	member.Role = models.RoleUser
	signed := issueGateToken(t, member)

	blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(false, nil)
	tenants.On("GetTenant", mock.Anything, "tenant-1").Return(gateTenant(), nil)
	users.On("GetUser", mock.Anything, "tenant-1", "user-1").Return(member, nil)

	principal, err := gate.Validate(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, []string{models.ScopeUser}, principal.Scopes)
	assert.False(t, principal.IsAdmin())
}

func TestGateValidate_ExpiredSkipsStore(t *testing.T) {
	gate, tenants, users, blacklist := gateFixture()

	issuer := token.NewIssuer(gateSecret, gateIssuer, gateAudience, -time.Hour)
	signed, _, err := issuer.Issue(gateUser())
	require.NoError(t, err)

	_, err = gate.Validate(context.Background(), signed)
	assert.Equal(t, services.ErrTokenExpired, err)

	blacklist.AssertNotCalled(t, "IsTokenBlacklisted")
	tenants.AssertNotCalled(t, "GetTenant")
	users.AssertNotCalled(t, "GetUser")
}

func TestGateValidate_Tampered(t *testing.T) {
	gate, _, _, _ := gateFixture()

	signed, _, err := token.NewIssuer("wrong-secret-entirely-different-one", gateIssuer, gateAudience, gateTTL).Issue(gateUser())
	require.NoError(t, err)

	_, err = gate.Validate(context.Background(), signed)
	assert.Equal(t, services.ErrInvalidToken, err)
}

func TestGateValidate_Revoked(t *testing.T) {
	gate, tenants, _, blacklist := gateFixture()
	signed := issueGateToken(t, gateUser())

	blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(true, nil)

	_, err := gate.Validate(context.Background(), signed)
	assert.Equal(t, services.ErrInvalidToken, err)
	tenants.AssertNotCalled(t, "GetTenant")
}

func TestGateValidate_FailsClosed(t *testing.T) {
	storeErr := services.WrapInternal("store down", errors.New("connection refused"))

	t.Run("blacklist error", func(t *testing.T) {
		gate, _, _, blacklist := gateFixture()
		signed := issueGateToken(t, gateUser())
		blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(false, storeErr)

		_, err := gate.Validate(context.Background(), signed)
		assert.Equal(t, services.ErrInvalidToken, err)
	})

	t.Run("tenant lookup error", func(t *testing.T) {
		gate, tenants, _, blacklist := gateFixture()
		signed := issueGateToken(t, gateUser())
		blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(false, nil)
		tenants.On("GetTenant", mock.Anything, "tenant-1").Return(nil, storeErr)

		_, err := gate.Validate(context.Background(), signed)
		assert.Equal(t, services.ErrInvalidToken, err)
	})

	t.Run("user lookup error", func(t *testing.T) {
		gate, tenants, users, blacklist := gateFixture()
		signed := issueGateToken(t, gateUser())
		blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(false, nil)
		tenants.On("GetTenant", mock.Anything, "tenant-1").Return(gateTenant(), nil)
		users.On("GetUser", mock.Anything, "tenant-1", "user-1").Return(nil, storeErr)

		_, err := gate.Validate(context.Background(), signed)
		assert.Equal(t, services.ErrInvalidToken, err)
	})
}

func TestGateValidate_MissingEntities(t *testing.T) {
	t.Run("tenant gone", func(t *testing.T) {
		gate, tenants, users, blacklist := gateFixture()
		signed := issueGateToken(t, gateUser())
		blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(false, nil)
		tenants.On("GetTenant", mock.Anything, "tenant-1").Return(nil, services.ErrTenantNotFound)

		_, err := gate.Validate(context.Background(), signed)
		assert.Equal(t, services.ErrInvalidToken, err)
		users.AssertNotCalled(t, "GetUser")
	})

	t.Run("user gone", func(t *testing.T) {
		gate, tenants, users, blacklist := gateFixture()
		signed := issueGateToken(t, gateUser())
		blacklist.On("IsTokenBlacklisted", mock.Anything, signed).Return(false, nil)
		tenants.On("GetTenant", mock.Anything, "tenant-1").Return(gateTenant(), nil)
		users.On("GetUser", mock.Anything, "tenant-1", "user-1").Return(nil, services.ErrUserNotFound)

		_, err := gate.Validate(context.Background(), signed)
		assert.Equal(t, services.ErrInvalidToken, err)
	})
}
