package account

import (
	"context"
	"errors"
)

// Common repository errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// Repository defines the interface for account persistence.
//
// The auth core consumes this store; it does not implement a storage
// engine. Email lookups are case-insensitive.
type Repository interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByID(ctx context.Context, id int64) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByVerificationToken(ctx context.Context, token string) (Account, error)
	FindByResetToken(ctx context.Context, token string) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	Delete(ctx context.Context, id int64) error
	FindAll(ctx context.Context) ([]Account, error)
	FindStudentsByInstitution(ctx context.Context, institutionID int64) ([]Account, error)
	Count(ctx context.Context) (int64, error)
}
