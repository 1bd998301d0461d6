// Package errors provides structured error handling with error codes for
// the auth core.
//
// Every package reports failures as *errors.Error values carrying a typed
// ErrorCode, a user-safe message, and an optional wrapped cause. The HTTP
// facade maps codes onto status codes with MapErrorCodeToHTTPStatus; service
// code checks categories with IsCode:
//
//	if errors.IsCode(err, errors.ErrCodeTokenExpired) {
//		// surface a 401 with a generic message
//	}
//
// Security-sensitive codes (ErrCodeTokenReuseDetected in particular) exist
// for internal branching and logging only; the messages surfaced to callers
// stay generic so error responses do not leak which check failed.
package errors
