package tokengen

import (
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/certportal/authcore/pkg/errors"
)

// TokenGenerator interface defines methods for access token operations
type TokenGenerator interface {
	// GenerateToken generates a signed token for the given subject and role
	GenerateToken(subject string, role string, expiry time.Duration) (string, time.Time, error)

	// ParseToken parses and validates a token, returning its claims
	ParseToken(tokenStr string) (*Claims, error)
}

// Claims carries the identity claims of an access token.
// Subject is the account id in decimal form; Role is the global role.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AccountID parses the subject claim into an account id
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid subject claim")
	}
	return id, nil
}

// JwtTokenGenerator implements the TokenGenerator interface using HS256.
// Validation is stateless: signature and expiry only, no store lookup.
// Access tokens are never revocable before expiry; keep the expiry short.
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
	}
}

// GenerateToken creates a new signed token with the given subject and role
func (g *JwtTokenGenerator) GenerateToken(subject string, role string, expiry time.Duration) (string, time.Time, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			NotBefore: jwt.NewNumericDate(time.Now().UTC().Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   subject,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign JWT claims", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a token string
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidInput, "unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(g.Secret), nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(err, errors.ErrCodeTokenExpired, "access token expired")
		}
		return nil, errors.Wrap(err, errors.ErrCodeInvalidCredentials, "invalid access token")
	}
	if !token.Valid {
		return nil, errors.New(errors.ErrCodeInvalidCredentials, "invalid access token")
	}
	return claims, nil
}
