package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, title, first_name, last_name, email, password_hash, accept_terms,
	role, verification_token, verified_at, reset_token, reset_token_expires_at,
	password_reset_at, institution_id, address, contact_no, created_at, updated_at`

// PostgresRepository implements Repository backed by PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL account repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var verificationToken, resetToken *string
	var institutionID *int64
	err := row.Scan(
		&a.ID, &a.Title, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &a.AcceptTerms,
		&a.Role, &verificationToken, &a.VerifiedAt, &resetToken, &a.ResetTokenExpiresAt,
		&a.PasswordResetAt, &institutionID, &a.Address, &a.ContactNo, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	if verificationToken != nil {
		a.VerificationToken = *verificationToken
	}
	if resetToken != nil {
		a.ResetToken = *resetToken
	}
	a.InstitutionID = institutionID
	return a, nil
}

// Create creates a new account, rejecting duplicate emails
func (r *PostgresRepository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (title, first_name, last_name, email, password_hash, accept_terms,
			role, verification_token, verified_at, reset_token, reset_token_expires_at,
			password_reset_at, institution_id, address, contact_no, created_at)
		VALUES ($1, $2, $3, lower($4), $5, $6, $7, nullif($8, ''), $9, nullif($10, ''), $11, $12, $13, $14, $15, now())
		RETURNING `+accountColumns,
		account.Title, account.FirstName, account.LastName, account.Email,
		account.PasswordHash, account.AcceptTerms, account.Role,
		account.VerificationToken, account.VerifiedAt, account.ResetToken,
		account.ResetTokenExpiresAt, account.PasswordResetAt, account.InstitutionID,
		account.Address, account.ContactNo,
	)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrEmailTaken
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

// GetByID gets an account by id
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// FindByEmail finds an account by email, case-insensitively
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = lower($1)`, email)
	return scanAccount(row)
}

// FindByVerificationToken finds the account holding this exact token
func (r *PostgresRepository) FindByVerificationToken(ctx context.Context, token string) (Account, error) {
	if token == "" {
		return Account{}, ErrAccountNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE verification_token = $1`, token)
	return scanAccount(row)
}

// FindByResetToken finds the account holding this exact reset token
func (r *PostgresRepository) FindByResetToken(ctx context.Context, token string) (Account, error) {
	if token == "" {
		return Account{}, ErrAccountNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE reset_token = $1`, token)
	return scanAccount(row)
}

// Update overwrites the stored account record
func (r *PostgresRepository) Update(ctx context.Context, account Account) (Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts SET
			title = $2, first_name = $3, last_name = $4, email = lower($5),
			password_hash = $6, accept_terms = $7, role = $8,
			verification_token = nullif($9, ''), verified_at = $10,
			reset_token = nullif($11, ''), reset_token_expires_at = $12,
			password_reset_at = $13, institution_id = $14, address = $15,
			contact_no = $16, updated_at = now()
		WHERE id = $1
		RETURNING `+accountColumns,
		account.ID, account.Title, account.FirstName, account.LastName, account.Email,
		account.PasswordHash, account.AcceptTerms, account.Role,
		account.VerificationToken, account.VerifiedAt, account.ResetToken,
		account.ResetTokenExpiresAt, account.PasswordResetAt, account.InstitutionID,
		account.Address, account.ContactNo,
	)
	updated, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrEmailTaken
		}
		return Account{}, err
	}
	return updated, nil
}

// Delete removes an account
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// FindAll returns all accounts ordered by id
func (r *PostgresRepository) FindAll(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// FindStudentsByInstitution returns student accounts affiliated with the institution
func (r *PostgresRepository) FindStudentsByInstitution(ctx context.Context, institutionID int64) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE role = $1 AND institution_id = $2
		ORDER BY id`, RoleStudent, institutionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// Count returns the number of accounts
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&count)
	return count, err
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
