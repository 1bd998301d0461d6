package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certportal/authcore/pkg/account"
	"github.com/certportal/authcore/pkg/errors"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestAuthorizeMatrix(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	engine := NewEngine(repo)

	// Instructor 2 is granted institution 5, nothing else
	_, err := repo.Assign(ctx, 2, 5)
	require.NoError(t, err)

	admin := Principal{AccountID: 1, Role: account.RoleAdmin}
	instructor := Principal{AccountID: 2, Role: account.RoleInstructor}
	student := Principal{AccountID: 3, Role: account.RoleStudent}

	tests := []struct {
		name          string
		principal     Principal
		action        Action
		institutionID *int64
		targetID      *int64
		allowed       bool
	}{
		{name: "admin unscoped", principal: admin, action: ActionRead, allowed: true},
		{name: "admin any target", principal: admin, action: ActionDelete, targetID: int64Ptr(3), allowed: true},
		{name: "admin any institution", principal: admin, action: ActionWrite, institutionID: int64Ptr(99), allowed: true},

		{name: "self read", principal: student, action: ActionRead, targetID: int64Ptr(3), allowed: true},
		{name: "self update", principal: student, action: ActionWrite, targetID: int64Ptr(3), allowed: true},
		{name: "other target denied", principal: student, action: ActionRead, targetID: int64Ptr(2), allowed: false},

		{name: "granted institution", principal: instructor, action: ActionRead, institutionID: int64Ptr(5), allowed: true},
		{name: "ungranted institution", principal: instructor, action: ActionRead, institutionID: int64Ptr(6), allowed: false},
		{name: "student without grant", principal: student, action: ActionWrite, institutionID: int64Ptr(5), allowed: false},

		{name: "unscoped non-admin denied", principal: instructor, action: ActionRead, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Authorize(ctx, tt.principal, tt.action, tt.institutionID, tt.targetID)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
			}
		})
	}
}

func TestAuthorizeIsDeterministic(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	engine := NewEngine(repo)

	_, err := repo.Assign(ctx, 2, 5)
	require.NoError(t, err)

	p := Principal{AccountID: 2, Role: account.RoleInstructor}
	for i := 0; i < 5; i++ {
		assert.NoError(t, engine.Authorize(ctx, p, ActionWrite, int64Ptr(5), nil))
		assert.Error(t, engine.Authorize(ctx, p, ActionWrite, int64Ptr(6), nil))
	}
}

func TestReplaceForAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	_, err := repo.Assign(ctx, 2, 5)
	require.NoError(t, err)
	_, err = repo.Assign(ctx, 2, 6)
	require.NoError(t, err)

	require.NoError(t, repo.ReplaceForAccount(ctx, 2, []int64{6, 7, 7}))

	ids, err := repo.FindInstitutions(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 7}, ids)
}

func TestUnassign(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	_, err := repo.Assign(ctx, 2, 5)
	require.NoError(t, err)

	require.NoError(t, repo.Unassign(ctx, 2, 5))
	assert.ErrorIs(t, repo.Unassign(ctx, 2, 5), ErrGrantNotFound)

	exists, err := repo.Exists(ctx, 2, 5)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAssignIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	first, err := repo.Assign(ctx, 2, 5)
	require.NoError(t, err)
	second, err := repo.Assign(ctx, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	grants, err := repo.FindByAccount(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}
