package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements Hasher using bcrypt. Kept for hashes imported
// from older deployments; new hashes use Argon2Hasher.
type BcryptHasher struct{}

// Hash implements Hasher.Hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements Hasher.Verify
func (h *BcryptHasher) Verify(password, encodedHash string) (bool, error) {
	if password == "" || encodedHash == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// ForHash returns the hasher able to verify the given encoded hash.
// Argon2 hashes are self-describing ($argon2id$ prefix); anything else is
// treated as a legacy bcrypt hash.
func ForHash(encodedHash string) Hasher {
	if len(encodedHash) > 10 && encodedHash[:10] == "$argon2id$" {
		return NewArgon2Hasher()
	}
	return &BcryptHasher{}
}
