package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tokenColumns = `token, account_id, created_at, expires_at, created_by_ip,
	revoked_at, revoked_by_ip, revoked_reason, replaced_by_token`

// PostgresRepository implements Repository backed by PostgreSQL.
// State transitions are conditional updates on `revoked_at IS NULL`, so a
// token leaves the Active state exactly once even under concurrent
// duplicate requests.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL refresh token repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func scanToken(row pgx.Row) (RefreshToken, error) {
	var t RefreshToken
	var revokedByIP, revokedReason, replacedBy *string
	err := row.Scan(
		&t.Token, &t.AccountID, &t.CreatedAt, &t.ExpiresAt, &t.CreatedByIP,
		&t.RevokedAt, &revokedByIP, &revokedReason, &replacedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshToken{}, ErrTokenNotFound
		}
		return RefreshToken{}, err
	}
	if revokedByIP != nil {
		t.RevokedByIP = *revokedByIP
	}
	if revokedReason != nil {
		t.RevokedReason = Reason(*revokedReason)
	}
	if replacedBy != nil {
		t.ReplacedByToken = *replacedBy
	}
	return t, nil
}

// Create stores a new token
func (r *PostgresRepository) Create(ctx context.Context, token RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token, account_id, created_at, expires_at, created_by_ip)
		VALUES ($1, $2, $3, $4, $5)`,
		token.Token, token.AccountID, token.CreatedAt, token.ExpiresAt, token.CreatedByIP,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// Get returns a token by its string
func (r *PostgresRepository) Get(ctx context.Context, token string) (RefreshToken, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token = $1`, token)
	return scanToken(row)
}

// Rotate atomically marks the presented token replaced and inserts its
// replacement in one transaction. The conditional update is the
// compare-and-swap: zero affected rows means the token already left the
// Active state.
func (r *PostgresRepository) Rotate(ctx context.Context, presented string, replacement RefreshToken, ip string, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rotation: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoked_by_ip = $3, revoked_reason = $4, replaced_by_token = $5
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2`,
		presented, now, ip, ReasonReplaced, replacement.Token,
	)
	if err != nil {
		return fmt.Errorf("failed to mark token rotated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token = $1)`, presented,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTokenNotFound
		}
		return ErrTokenInactive
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refresh_tokens (token, account_id, created_at, expires_at, created_by_ip)
		VALUES ($1, $2, $3, $4, $5)`,
		replacement.Token, replacement.AccountID, replacement.CreatedAt,
		replacement.ExpiresAt, replacement.CreatedByIP,
	)
	if err != nil {
		return fmt.Errorf("failed to create replacement token: %w", err)
	}

	return tx.Commit(ctx)
}

// MarkRevoked revokes an Active token
func (r *PostgresRepository) MarkRevoked(ctx context.Context, token string, ip string, reason Reason, now time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoked_by_ip = $3, revoked_reason = $4
		WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2`,
		token, now, ip, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE token = $1)`, token,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrTokenNotFound
		}
		return ErrTokenInactive
	}
	return nil
}

// RevokeAllActive revokes every Active token of the account
func (r *PostgresRepository) RevokeAllActive(ctx context.Context, accountID int64, ip string, reason Reason, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2, revoked_by_ip = $3, revoked_reason = $4
		WHERE account_id = $1 AND revoked_at IS NULL AND expires_at > $2`,
		accountID, now, ip, reason,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke account tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExistsForAccount reports whether the token is anywhere in the account's chain
func (r *PostgresRepository) ExistsForAccount(ctx context.Context, accountID int64, token string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM refresh_tokens WHERE account_id = $1 AND token = $2)`,
		accountID, token,
	).Scan(&exists)
	return exists, err
}

// FindByAccount returns the account's chain ordered by creation time
func (r *PostgresRepository) FindByAccount(ctx context.Context, accountID int64) ([]RefreshToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+` FROM refresh_tokens
		WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chain []RefreshToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return chain, rows.Err()
}

// DeleteExpiredBefore removes tokens whose expiry is older than the cutoff
func (r *PostgresRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
