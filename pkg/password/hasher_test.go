package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestArgon2HashAndVerify(t *testing.T) {
	hasher := NewArgon2Hasher()

	hash, err := hasher.Hash("Sup3rSecret!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := hasher.Verify("Sup3rSecret!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2HashIsSalted(t *testing.T) {
	hasher := NewArgon2Hasher()

	first, err := hasher.Hash("Sup3rSecret!")
	require.NoError(t, err)
	second, err := hasher.Hash("Sup3rSecret!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2RejectsEmptyPassword(t *testing.T) {
	hasher := NewArgon2Hasher()

	_, err := hasher.Hash("")
	assert.Error(t, err)
}

func TestArgon2VerifyMalformedHash(t *testing.T) {
	hasher := NewArgon2Hasher()

	_, err := hasher.Verify("password", "not-a-phc-string")
	assert.Error(t, err)
}

func TestForHashDispatch(t *testing.T) {
	argonHash, err := NewArgon2Hasher().Hash("Sup3rSecret!")
	require.NoError(t, err)

	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret!"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := ForHash(argonHash).Verify("Sup3rSecret!", argonHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ForHash(string(bcryptHash)).Verify("Sup3rSecret!", string(bcryptHash))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ForHash(string(bcryptHash)).Verify("wrong", string(bcryptHash))
	require.NoError(t, err)
	assert.False(t, ok)
}
