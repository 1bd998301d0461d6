package authz

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository for
// development and tests
type InMemoryRepository struct {
	mu     sync.RWMutex
	grants map[int64]RoleInstitution
	nextID int64
}

// NewInMemoryRepository creates a new in-memory grant repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		grants: make(map[int64]RoleInstitution),
		nextID: 1,
	}
}

func (r *InMemoryRepository) find(accountID, institutionID int64) (RoleInstitution, bool) {
	for _, g := range r.grants {
		if g.AccountID == accountID && g.InstitutionID == institutionID {
			return g, true
		}
	}
	return RoleInstitution{}, false
}

// Assign creates a grant for the pair; assigning an existing pair returns
// the existing grant unchanged.
func (r *InMemoryRepository) Assign(ctx context.Context, accountID, institutionID int64) (RoleInstitution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.find(accountID, institutionID); ok {
		return existing, nil
	}

	grant := RoleInstitution{
		ID:            r.nextID,
		AccountID:     accountID,
		InstitutionID: institutionID,
		CreatedAt:     time.Now().UTC(),
	}
	r.grants[grant.ID] = grant
	r.nextID++
	return grant, nil
}

// Unassign removes the grant for the pair
func (r *InMemoryRepository) Unassign(ctx context.Context, accountID, institutionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.find(accountID, institutionID)
	if !ok {
		return ErrGrantNotFound
	}
	delete(r.grants, g.ID)
	return nil
}

// Exists reports whether a grant exists for the pair
func (r *InMemoryRepository) Exists(ctx context.Context, accountID, institutionID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.find(accountID, institutionID)
	return ok, nil
}

// FindInstitutions returns the institution ids granted to the account
func (r *InMemoryRepository) FindInstitutions(ctx context.Context, accountID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for _, g := range r.grants {
		if g.AccountID == accountID {
			ids = append(ids, g.InstitutionID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// FindByAccount returns the account's grants ordered by institution id
func (r *InMemoryRepository) FindByAccount(ctx context.Context, accountID int64) ([]RoleInstitution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var grants []RoleInstitution
	for _, g := range r.grants {
		if g.AccountID == accountID {
			grants = append(grants, g)
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].InstitutionID < grants[j].InstitutionID })
	return grants, nil
}

// ReplaceForAccount replaces the account's grants with the given set
func (r *InMemoryRepository) ReplaceForAccount(ctx context.Context, accountID int64, institutionIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, g := range r.grants {
		if g.AccountID == accountID {
			delete(r.grants, id)
		}
	}

	now := time.Now().UTC()
	seen := make(map[int64]bool)
	for _, institutionID := range institutionIDs {
		if seen[institutionID] {
			continue
		}
		seen[institutionID] = true
		r.grants[r.nextID] = RoleInstitution{
			ID:            r.nextID,
			AccountID:     accountID,
			InstitutionID: institutionID,
			CreatedAt:     now,
		}
		r.nextID++
	}
	return nil
}

// DeleteForAccount removes every grant of the account
func (r *InMemoryRepository) DeleteForAccount(ctx context.Context, accountID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, g := range r.grants {
		if g.AccountID == accountID {
			delete(r.grants, id)
		}
	}
	return nil
}
