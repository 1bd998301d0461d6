// Package account models the credential store collaborator: the identity
// record with its embedded single-use tokens, the repository interface with
// in-memory and PostgreSQL implementations, and the explicit update-merge
// rules for profile changes.
package account
