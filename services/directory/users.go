package directory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/store"
)

// CreateUser hashes the password, persists the user under a
// tenant-scoped key and registers the email index. The email index write
// is the tenant-scoped uniqueness guard. The returned user is sanitized;
// the password hash never leaves this package in a result.
func (s *Service) CreateUser(ctx context.Context, tenantID, username, email, password string, role models.UserRole) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return nil, services.ErrInvalidInput
	}

	switch role {
	case "":
		role = models.RoleUser
	case models.RoleAdmin, models.RoleUser:
	default:
		return nil, services.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(tenantID, username, email, string(hash), role)

	data, err := json.Marshal(user)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal user", err)
	}

	created, err := s.kv.SetNX(ctx, store.UserEmailKey(tenantID, email), user.ID, 0)
	if err != nil {
		return nil, services.WrapInternal("failed to register email index", err)
	}
	if !created {
		s.logger.Warn("email already registered",
			zap.String("tenant_id", tenantID),
			zap.String("email", email))
		return nil, services.ErrDuplicateEmail
	}

	if err := s.kv.Set(ctx, store.UserKey(tenantID, user.ID), string(data)); err != nil {
		return nil, services.WrapInternal("failed to store user", err)
	}
	if err := s.kv.SAdd(ctx, store.UserSetKey(tenantID), user.ID); err != nil {
		return nil, services.WrapInternal("failed to index user", err)
	}

	s.logger.Info("user created",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return user.Sanitized(), nil
}

// GetUserByEmail loads a user through the tenant-scoped email index. The
// result includes the password hash and exists for internal credential
// verification only.
func (s *Service) GetUserByEmail(ctx context.Context, tenantID, email string) (*models.User, error) {
	userID, err := s.kv.Get(ctx, store.UserEmailKey(tenantID, email))
	if err != nil {
		if err == store.ErrKeyNotFound {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to resolve email index", err)
	}
	return s.loadUser(ctx, tenantID, userID)
}

// GetUser loads a user by id, sanitized
func (s *Service) GetUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	user, err := s.loadUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// GetAllUsers resolves the tenant's user-id set and loads each record,
// sanitized, ordered by creation time. Ids whose record is gone are
// skipped silently; the index tolerates stale entries.
func (s *Service) GetAllUsers(ctx context.Context, tenantID string) ([]*models.User, error) {
	ids, err := s.kv.SMembers(ctx, store.UserSetKey(tenantID))
	if err != nil {
		return nil, services.WrapInternal("failed to list user index", err)
	}

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.loadUser(ctx, tenantID, id)
		if err != nil {
			if services.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		users = append(users, user.Sanitized())
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// UserUpdate holds the mutable user fields. Nil fields are left
// unchanged; id, tenant id and email are immutable.
type UserUpdate struct {
	Username *string
	Role     *models.UserRole
	Status   *models.UserStatus
}

// UpdateUser merges the given fields into an existing user and stamps the
// update time. The result is sanitized.
func (s *Service) UpdateUser(ctx context.Context, tenantID, userID string, update UserUpdate) (*models.User, error) {
	user, err := s.loadUser(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Role != nil {
		switch *update.Role {
		case models.RoleAdmin, models.RoleUser:
			user.Role = *update.Role
		default:
			return nil, services.ErrInvalidRole
		}
	}
	if update.Status != nil {
		user.Status = *update.Status
	}
	user.UpdatedAt = time.Now()

	data, err := json.Marshal(user)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal user", err)
	}
	if err := s.kv.Set(ctx, store.UserKey(tenantID, user.ID), string(data)); err != nil {
		return nil, services.WrapInternal("failed to store user", err)
	}

	s.logger.Info("user updated",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", user.ID))

	return user.Sanitized(), nil
}

// VerifyPassword reports whether hash was produced from plaintext. Any
// mismatch or malformed hash yields false, never an error.
func (s *Service) VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// loadUser fetches and decodes the raw user record, hash included
func (s *Service) loadUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	data, err := s.kv.Get(ctx, store.UserKey(tenantID, userID))
	if err != nil {
		if err == store.ErrKeyNotFound {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to load user", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, services.WrapInternal("failed to unmarshal user", err)
	}
	return &user, nil
}
