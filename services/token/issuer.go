// Package token signs and verifies the HS256 session tokens that
// authenticate every request after login. The verifier checks only the
// token itself; revocation and account state live with the caller.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/llmgate/llmgate/models"
	"github.com/llmgate/llmgate/services"
)

// Issuer signs session tokens for authenticated users.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer. All tokens it signs share the given
// issuer, audience and lifetime.
func NewIssuer(secret, issuer, audience string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue signs a token binding the user to their tenant and role.
func (i *Issuer) Issue(user *models.User) (string, *Claims, error) {
	if user == nil || user.ID == "" || user.TenantID == "" {
		return "", nil, services.ErrInvalidInput
	}

	now := i.now()
	claims := &Claims{
		TenantID: user.TenantID,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, services.WrapInternal("failed to sign token", err)
	}
	return signed, claims, nil
}

// TTL reports the lifetime applied to issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}
