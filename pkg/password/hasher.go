package password

// Hasher defines the interface for password hashing implementations.
//
// Hash produces a self-describing encoded string (algorithm, parameters and
// per-call random salt are all embedded), so Verify needs no side channel.
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash.
	// A mismatch is reported as (false, nil); errors are reserved for
	// malformed input or malformed hashes.
	Verify(password, encodedHash string) (bool, error)
}
