// Package tokengen mints and validates short-lived signed access tokens
// (subject = account id, role = global role) and handles the HTTP-only
// refresh cookie transport.
package tokengen
