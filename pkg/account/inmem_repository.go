package account

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository implements Repository using in-memory storage.
// Used by tests and the inmem deployment mode.
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts map[int64]Account
	nextID   int64
}

// NewInMemoryRepository creates a new in-memory account repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts: make(map[int64]Account),
		nextID:   1,
	}
}

// Create creates a new account, rejecting duplicate emails
func (r *InMemoryRepository) Create(ctx context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(account.Email)
	for _, existing := range r.accounts {
		if NormalizeEmail(existing.Email) == email {
			return Account{}, ErrEmailTaken
		}
	}

	account.ID = r.nextID
	r.nextID++
	account.Email = email
	account.CreatedAt = time.Now().UTC()
	r.accounts[account.ID] = account
	return account, nil
}

// GetByID gets an account by id
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

// FindByEmail finds an account by email, case-insensitively
func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := NormalizeEmail(email)
	for _, account := range r.accounts {
		if NormalizeEmail(account.Email) == needle {
			return account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

// FindByVerificationToken finds the account holding this exact token
func (r *InMemoryRepository) FindByVerificationToken(ctx context.Context, token string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token == "" {
		return Account{}, ErrAccountNotFound
	}
	for _, account := range r.accounts {
		if account.VerificationToken == token {
			return account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

// FindByResetToken finds the account holding this exact reset token
func (r *InMemoryRepository) FindByResetToken(ctx context.Context, token string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token == "" {
		return Account{}, ErrAccountNotFound
	}
	for _, account := range r.accounts {
		if account.ResetToken == token {
			return account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

// Update overwrites the stored account record
func (r *InMemoryRepository) Update(ctx context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return Account{}, ErrAccountNotFound
	}

	email := NormalizeEmail(account.Email)
	for id, existing := range r.accounts {
		if id != account.ID && NormalizeEmail(existing.Email) == email {
			return Account{}, ErrEmailTaken
		}
	}

	now := time.Now().UTC()
	account.Email = email
	account.UpdatedAt = &now
	r.accounts[account.ID] = account
	return account, nil
}

// Delete removes an account
func (r *InMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

// FindAll returns all accounts ordered by id
func (r *InMemoryRepository) FindAll(ctx context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// FindStudentsByInstitution returns student accounts affiliated with the institution
func (r *InMemoryRepository) FindStudentsByInstitution(ctx context.Context, institutionID int64) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var students []Account
	for _, account := range r.accounts {
		if account.Role == RoleStudent && account.InstitutionID != nil && *account.InstitutionID == institutionID {
			students = append(students, account)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

// Count returns the number of accounts
func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.accounts)), nil
}
