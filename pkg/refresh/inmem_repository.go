package refresh

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository implements Repository using in-memory storage.
// All state transitions happen under one mutex, which gives the same
// exactly-once guarantee the SQL implementation gets from conditional
// updates.
type InMemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

// NewInMemoryRepository creates a new in-memory refresh token repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tokens: make(map[string]RefreshToken),
	}
}

// Create stores a new token
func (r *InMemoryRepository) Create(ctx context.Context, token RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

// Get returns a token by its string
func (r *InMemoryRepository) Get(ctx context.Context, token string) (RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return RefreshToken{}, ErrTokenNotFound
	}
	return t, nil
}

// Rotate atomically marks the presented token replaced and inserts its replacement
func (r *InMemoryRepository) Rotate(ctx context.Context, presented string, replacement RefreshToken, ip string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[presented]
	if !ok {
		return ErrTokenNotFound
	}
	// Re-check state under the lock; a concurrent rotation may have won
	if !t.IsActive(now) {
		return ErrTokenInactive
	}

	revokedAt := now
	t.RevokedAt = &revokedAt
	t.RevokedByIP = ip
	t.RevokedReason = ReasonReplaced
	t.ReplacedByToken = replacement.Token
	r.tokens[presented] = t
	r.tokens[replacement.Token] = replacement
	return nil
}

// MarkRevoked revokes an Active token
func (r *InMemoryRepository) MarkRevoked(ctx context.Context, token string, ip string, reason Reason, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	if !ok {
		return ErrTokenNotFound
	}
	if !t.IsActive(now) {
		return ErrTokenInactive
	}

	revokedAt := now
	t.RevokedAt = &revokedAt
	t.RevokedByIP = ip
	t.RevokedReason = reason
	r.tokens[token] = t
	return nil
}

// RevokeAllActive revokes every Active token of the account
func (r *InMemoryRepository) RevokeAllActive(ctx context.Context, accountID int64, ip string, reason Reason, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var revoked int64
	for key, t := range r.tokens {
		if t.AccountID != accountID || !t.IsActive(now) {
			continue
		}
		revokedAt := now
		t.RevokedAt = &revokedAt
		t.RevokedByIP = ip
		t.RevokedReason = reason
		r.tokens[key] = t
		revoked++
	}
	return revoked, nil
}

// ExistsForAccount reports whether the token is anywhere in the account's chain
func (r *InMemoryRepository) ExistsForAccount(ctx context.Context, accountID int64, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[token]
	return ok && t.AccountID == accountID, nil
}

// FindByAccount returns the account's chain ordered by creation time
func (r *InMemoryRepository) FindByAccount(ctx context.Context, accountID int64) ([]RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var chain []RefreshToken
	for _, t := range r.tokens {
		if t.AccountID == accountID {
			chain = append(chain, t)
		}
	}
	sort.Slice(chain, func(i, j int) bool { return chain[i].CreatedAt.Before(chain[j].CreatedAt) })
	return chain, nil
}

// DeleteExpiredBefore removes tokens whose expiry is older than the cutoff
func (r *InMemoryRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, t := range r.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}
