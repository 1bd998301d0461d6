// Package verification implements the single-use account tokens: email
// verification and expiring password resets. Both tokens live on the
// account record itself and are cleared on redemption, making each token
// usable exactly once.
package verification
