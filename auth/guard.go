// auth/guard.go
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/vanguard-api/vanguard/errors"
)

// Claims are the JWT claims vanguard issues and verifies.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Guard verifies bearer credentials and produces Principals. It is
// read-only and touches no shared state, so it never contends with other
// in-flight requests.
type Guard struct {
	secret []byte
	issuer string
}

// NewGuard creates a Guard verifying HMAC-SHA256 signatures with secret
// and requiring the given issuer claim.
func NewGuard(secret, issuer string) *Guard {
	return &Guard{secret: []byte(secret), issuer: issuer}
}

// Authenticate verifies the raw token string and returns the Principal its
// claims describe. Missing, malformed, tampered, and expired credentials
// all fail with ErrUnauthenticated; expiry additionally matches
// ErrTokenExpired so callers can distinguish it.
func (g *Guard) Authenticate(raw string) (*Principal, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: missing credential", apperrors.ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(g.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, apperrors.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", apperrors.ErrUnauthenticated)
	}

	principal := &Principal{
		Subject: claims.Subject,
		Roles:   claims.Roles,
	}
	if claims.IssuedAt != nil {
		principal.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}

	return principal, nil
}

// IssueToken mints a signed HS256 token for the given subject and roles.
// Token issuance lives next to verification so the two cannot drift apart,
// but only the auth endpoints call it; the pipeline never issues.
func (g *Guard) IssueToken(subject string, roles []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseBearerToken extracts the token from an Authorization header value.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(authorizationHeader), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization header", apperrors.ErrUnauthenticated)
	}
	return parts[1], nil
}
