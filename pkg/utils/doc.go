// Package utils provides small shared helpers: secure random token
// generation and sql null type conversions.
package utils
