package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/llmgate/llmgate/services"
)

// Verifier checks the signature and registered claims of session tokens.
// Clock skew up to the configured leeway is tolerated in both directions.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

// NewVerifier creates a Verifier. maxAge caps how long after issuance a
// token is honored, independent of the expiry claim it carries.
func NewVerifier(secret, issuer, audience string, leeway, maxAge time.Duration) *Verifier {
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Verify parses and validates a token string, returning its claims.
// Failures collapse to ErrTokenExpired or ErrInvalidToken; the caller
// never learns which check failed beyond that split.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.ErrTokenExpired
		}
		return nil, services.ErrInvalidToken
	}

	if claims.Subject == "" || claims.TenantID == "" {
		return nil, services.ErrInvalidToken
	}

	// A token older than maxAge is stale even when its expiry claim says
	// otherwise. IssuedAt presence is enforced by WithIssuedAt only when
	// the claim exists, so require it here.
	if claims.IssuedAt == nil {
		return nil, services.ErrInvalidToken
	}
	if v.now().Sub(claims.IssuedAt.Time) > v.maxAge+v.leeway {
		return nil, services.ErrTokenExpired
	}

	return claims, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return v.secret, nil
}
