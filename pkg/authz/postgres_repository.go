package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const grantColumns = `id, account_id, institution_id, created_at, updated_at`

// PostgresRepository implements Repository backed by PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL grant repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanGrant(row pgx.Row) (RoleInstitution, error) {
	var g RoleInstitution
	err := row.Scan(&g.ID, &g.AccountID, &g.InstitutionID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoleInstitution{}, ErrGrantNotFound
		}
		return RoleInstitution{}, err
	}
	return g, nil
}

// Assign creates a grant for the pair; assigning an existing pair returns
// the existing grant unchanged.
func (r *PostgresRepository) Assign(ctx context.Context, accountID, institutionID int64) (RoleInstitution, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO role_institutions (account_id, institution_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id, institution_id)
			DO UPDATE SET updated_at = now()
		RETURNING `+grantColumns,
		accountID, institutionID)
	grant, err := scanGrant(row)
	if err != nil {
		return RoleInstitution{}, fmt.Errorf("failed to assign institution grant: %w", err)
	}
	return grant, nil
}

// Unassign removes the grant for the pair
func (r *PostgresRepository) Unassign(ctx context.Context, accountID, institutionID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM role_institutions WHERE account_id = $1 AND institution_id = $2`,
		accountID, institutionID)
	if err != nil {
		return fmt.Errorf("failed to unassign institution grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// Exists reports whether a grant exists for the pair
func (r *PostgresRepository) Exists(ctx context.Context, accountID, institutionID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_institutions WHERE account_id = $1 AND institution_id = $2)`,
		accountID, institutionID).Scan(&exists)
	return exists, err
}

// FindInstitutions returns the institution ids granted to the account
func (r *PostgresRepository) FindInstitutions(ctx context.Context, accountID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT institution_id FROM role_institutions WHERE account_id = $1 ORDER BY institution_id`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindByAccount returns the account's grants ordered by institution id
func (r *PostgresRepository) FindByAccount(ctx context.Context, accountID int64) ([]RoleInstitution, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+grantColumns+` FROM role_institutions WHERE account_id = $1 ORDER BY institution_id`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []RoleInstitution
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ReplaceForAccount replaces the account's grants with the given set in a
// single transaction
func (r *PostgresRepository) ReplaceForAccount(ctx context.Context, accountID int64, institutionIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_institutions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to clear institution grants: %w", err)
	}
	for _, institutionID := range institutionIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO role_institutions (account_id, institution_id, created_at)
			VALUES ($1, $2, now())
			ON CONFLICT (account_id, institution_id) DO NOTHING`,
			accountID, institutionID)
		if err != nil {
			return fmt.Errorf("failed to insert institution grant: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// DeleteForAccount removes every grant of the account
func (r *PostgresRepository) DeleteForAccount(ctx context.Context, accountID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_institutions WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete institution grants: %w", err)
	}
	return nil
}
