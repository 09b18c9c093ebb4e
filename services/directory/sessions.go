package directory

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
	"github.com/llmgate/llmgate/store"
)

// CreateSession persists an advisory login record with a fixed 4-hour
// expiry, independent of token expiry.
func (s *Service) CreateSession(ctx context.Context, tenantID, userID string, loginTime time.Time, userAgent string) (*models.Session, error) {
	session := models.NewSession(tenantID, userID, loginTime, userAgent, sessionTTL)

	data, err := json.Marshal(session)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal session", err)
	}
	if err := s.kv.SetWithTTL(ctx, store.SessionKey(session.ID), string(data), sessionTTL); err != nil {
		return nil, services.WrapInternal("failed to store session", err)
	}

	s.logger.Info("session created",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", userID),
		zap.String("session_id", session.ID))

	return session, nil
}

// GetSession loads a session by id
func (s *Service) GetSession(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.kv.Get(ctx, store.SessionKey(id))
	if err != nil {
		if err == store.ErrKeyNotFound {
			return nil, services.ErrSessionNotFound
		}
		return nil, services.WrapInternal("failed to load session", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, services.WrapInternal("failed to unmarshal session", err)
	}
	return &session, nil
}

// DeleteSession removes a session record. Deleting a missing session is
// not an error.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, store.SessionKey(id)); err != nil {
		return services.WrapInternal("failed to delete session", err)
	}
	return nil
}

// BlacklistToken marks a raw token string invalid for the remainder of
// its natural lifetime. A non-positive ttl falls back to the full token
// validity window so the entry self-expires.
func (s *Service) BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return services.ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = DefaultBlacklistTTL
	}
	if err := s.kv.SetWithTTL(ctx, store.BlacklistKey(token), "1", ttl); err != nil {
		return services.WrapInternal("failed to blacklist token", err)
	}

	s.logger.Info("token blacklisted", zap.Duration("ttl", ttl))
	return nil
}

// IsTokenBlacklisted reports whether a raw token string has been revoked
func (s *Service) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	revoked, err := s.kv.Exists(ctx, store.BlacklistKey(token))
	if err != nil {
		return false, services.WrapInternal("failed to check blacklist", err)
	}
	return revoked, nil
}
