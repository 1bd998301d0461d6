// Package authz implements the institution-scoped access policy engine.
//
// Decisions are deterministic over three inputs: the principal's role, the
// optional target account and the optional institution scope. No rule ever
// consults request state beyond what the caller passes in, so the same call
// always yields the same decision against the same grant table.
package authz
