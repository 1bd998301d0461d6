package tokengen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certportal/authcore/pkg/errors"
)

func newTestGenerator() *JwtTokenGenerator {
	return NewJwtTokenGenerator("test-secret", "authcore-test", "certportal-test")
}

func TestGenerateAndParseToken(t *testing.T) {
	g := newTestGenerator()

	tokenStr, expiry, err := g.GenerateToken("42", "Admin", 15*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiry, 5*time.Second)

	claims, err := g.ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "Admin", claims.Role)
	assert.Equal(t, "authcore-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	accountID, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), accountID)
}

func TestParseExpiredToken(t *testing.T) {
	g := newTestGenerator()

	tokenStr, _, err := g.GenerateToken("42", "Student", -time.Minute)
	require.NoError(t, err)

	_, err = g.ParseToken(tokenStr)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenExpired))
}

func TestParseTokenWrongSecret(t *testing.T) {
	g := newTestGenerator()

	tokenStr, _, err := g.GenerateToken("42", "Student", time.Minute)
	require.NoError(t, err)

	other := NewJwtTokenGenerator("different-secret", "authcore-test", "certportal-test")
	_, err = other.ParseToken(tokenStr)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidCredentials))
}

func TestParseGarbageToken(t *testing.T) {
	g := newTestGenerator()

	_, err := g.ParseToken("not.a.jwt")
	assert.Error(t, err)
}

func TestAccountIDInvalidSubject(t *testing.T) {
	g := newTestGenerator()

	tokenStr, _, err := g.GenerateToken("not-a-number", "Student", time.Minute)
	require.NoError(t, err)

	claims, err := g.ParseToken(tokenStr)
	require.NoError(t, err)

	_, err = claims.AccountID()
	assert.Error(t, err)
}
