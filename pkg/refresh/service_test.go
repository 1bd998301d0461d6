package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certportal/authcore/pkg/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T) (*Service, *InMemoryRepository, *fakeClock) {
	t.Helper()
	repo := NewInMemoryRepository()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	service := NewService(repo,
		WithTTL(7*24*time.Hour),
		WithRetention(2*24*time.Hour),
		WithClock(clock.Now),
	)
	return service, repo, clock
}

func TestIssueAndRotate(t *testing.T) {
	ctx := context.Background()
	service, repo, clock := newTestService(t)

	issued, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, clock.now.Add(7*24*time.Hour), issued.ExpiresAt)

	rotated, err := service.Rotate(ctx, issued.Token, "10.0.0.2")
	require.NoError(t, err)
	assert.NotEqual(t, issued.Token, rotated.Token)
	assert.Equal(t, int64(1), rotated.AccountID)

	old, err := repo.Get(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, old.IsRevoked())
	assert.Equal(t, ReasonReplaced, old.RevokedReason)
	assert.Equal(t, rotated.Token, old.ReplacedByToken)
	assert.Equal(t, "10.0.0.2", old.RevokedByIP)
}

func TestRotateReplayRevokesChain(t *testing.T) {
	ctx := context.Background()
	service, repo, _ := newTestService(t)

	first, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)
	second, err := service.Rotate(ctx, first.Token, "10.0.0.1")
	require.NoError(t, err)
	third, err := service.Rotate(ctx, second.Token, "10.0.0.1")
	require.NoError(t, err)

	// Replaying the already rotated first token is reuse
	_, err = service.Rotate(ctx, first.Token, "203.0.113.9")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenReuseDetected))

	// The active tail of the chain was revoked by the cascade
	tail, err := repo.Get(ctx, third.Token)
	require.NoError(t, err)
	assert.True(t, tail.IsRevoked())
	assert.Equal(t, ReasonReuseDetected, tail.RevokedReason)

	// The chain stays dead: the cascaded token is itself refused
	_, err = service.Rotate(ctx, third.Token, "203.0.113.9")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenReuseDetected))
}

func TestRotateDoesNotTouchOtherAccounts(t *testing.T) {
	ctx := context.Background()
	service, repo, _ := newTestService(t)

	victim, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)
	bystander, err := service.Issue(ctx, 2, "10.0.0.2")
	require.NoError(t, err)

	_, err = service.Rotate(ctx, victim.Token, "10.0.0.1")
	require.NoError(t, err)
	_, err = service.Rotate(ctx, victim.Token, "203.0.113.9")
	require.Error(t, err)

	other, err := repo.Get(ctx, bystander.Token)
	require.NoError(t, err)
	assert.False(t, other.IsRevoked())
}

func TestRotateExpiredToken(t *testing.T) {
	ctx := context.Background()
	service, _, clock := newTestService(t)

	issued, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour + time.Minute)

	_, err = service.Rotate(ctx, issued.Token, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenExpired))
}

func TestRotateUnknownToken(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	_, err := service.Rotate(ctx, "no-such-token", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenNotFound))
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	service, repo, _ := newTestService(t)

	issued, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, service.Revoke(ctx, issued.Token, "10.0.0.1", ReasonRevokedByUser))

	stored, err := repo.Get(ctx, issued.Token)
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked())
	assert.Equal(t, ReasonRevokedByUser, stored.RevokedReason)

	// Revoking a token that already left the Active state is refused
	err = service.Revoke(ctx, issued.Token, "10.0.0.1", ReasonRevokedByUser)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInactive))
}

func TestRevokeAllForAccount(t *testing.T) {
	ctx := context.Background()
	service, repo, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		_, err := service.Issue(ctx, 1, "10.0.0.1")
		require.NoError(t, err)
	}
	other, err := service.Issue(ctx, 2, "10.0.0.2")
	require.NoError(t, err)

	revoked, err := service.RevokeAllForAccount(ctx, 1, "10.0.0.1", ReasonRevokedByAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), revoked)

	stored, err := repo.Get(ctx, other.Token)
	require.NoError(t, err)
	assert.False(t, stored.IsRevoked())
}

func TestOwnsToken(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService(t)

	issued, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)

	owns, err := service.OwnsToken(ctx, 1, issued.Token)
	require.NoError(t, err)
	assert.True(t, owns)

	owns, err = service.OwnsToken(ctx, 2, issued.Token)
	require.NoError(t, err)
	assert.False(t, owns)
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	service, repo, clock := newTestService(t)

	stale, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)

	// Past the TTL plus the retention window: stale is swept
	clock.Advance(7*24*time.Hour + 2*24*time.Hour + time.Minute)

	fresh, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)

	deleted, err := service.SweepExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, stale.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = repo.Get(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestSweepKeepsRecentlyExpired(t *testing.T) {
	ctx := context.Background()
	service, repo, clock := newTestService(t)

	issued, err := service.Issue(ctx, 1, "10.0.0.1")
	require.NoError(t, err)

	// Expired, but still inside the retention window
	clock.Advance(7*24*time.Hour + time.Hour)

	deleted, err := service.SweepExpired(ctx, clock.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted)

	_, err = repo.Get(ctx, issued.Token)
	assert.NoError(t, err)
}
