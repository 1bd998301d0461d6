// Package password provides one-way salted password hashing with
// constant-time verification, plus configurable complexity checking.
//
// Argon2id is the current scheme; bcrypt remains supported for verifying
// hashes imported from older deployments. Use ForHash to pick the right
// verifier for a stored hash.
package password
