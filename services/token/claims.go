package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/llmgate/llmgate/services"
)

// Claims carries the session identity inside a signed token.
type Claims struct {
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ParseUnverified decodes claims without checking the signature or the
// registered claims. Logout uses it to size the blacklist entry from the
// token's own expiry after the middleware has already verified the token.
func ParseUnverified(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation, "malformed token", err)
	}
	return claims, nil
}
