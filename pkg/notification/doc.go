// Package notification delivers the transactional emails of the account
// lifecycle: verification tokens, password reset tokens and the
// already-registered notice. Delivery failures are logged, never surfaced
// to the requester, so the flows stay non-enumerating.
package notification
