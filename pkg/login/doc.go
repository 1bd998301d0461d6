// Package login wires the authentication flows together: registration with
// email verification, credential login issuing access and refresh tokens,
// refresh token rotation, revocation and the password reset flow.
package login
