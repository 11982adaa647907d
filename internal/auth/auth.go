// Package auth verifies bearer tokens issued by the identity service and
// exposes the caller identity to HTTP handlers.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/domain"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID int64
	Role   domain.Role
}

func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

// Actor is the audit label used in stock movements and status changes.
func (i Identity) Actor() string {
	if i.IsAdmin() {
		return "admin:" + strconv.FormatInt(i.UserID, 10)
	}
	return "user:" + strconv.FormatInt(i.UserID, 10)
}

type Verifier interface {
	Verify(token string) (Identity, error)
}

// Claims is the token payload: subject is the numeric user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HMACVerifier checks HS256-signed tokens.
type HMACVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewHMACVerifier(secret string, leeway time.Duration) *HMACVerifier {
	return &HMACVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
		),
	}
}

func (v *HMACVerifier) Verify(raw string) (Identity, error) {
	if len(v.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: verifier has no secret", domain.ErrUnauthorized)
	}
	var claims Claims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: invalid subject", domain.ErrUnauthorized)
	}
	role := domain.Role(strings.ToLower(claims.Role))
	switch role {
	case "":
		role = domain.RoleCustomer
	case domain.RoleCustomer, domain.RoleAdmin:
	default:
		return Identity{}, fmt.Errorf("%w: unknown role %q", domain.ErrUnauthorized, claims.Role)
	}
	return Identity{UserID: userID, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("missing bearer token")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
