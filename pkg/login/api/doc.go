// Package api exposes the auth core over HTTP: the account authentication,
// registration, verification and reset endpoints plus the protected account
// management routes. Refresh tokens travel exclusively in an HTTP-only
// cookie; access tokens are bearer JWTs verified by middleware.
package api
