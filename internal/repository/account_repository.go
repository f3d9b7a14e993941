package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personahub/api/internal/models"
)

var ErrAccountNotFound = errors.New("account not found")

// AuthRecord is the narrow field set loaded during request
// authentication. It deliberately excludes the password hash and other
// sensitive columns so they never land in request context.
type AuthRecord struct {
	ID          string
	Email       string
	Name        string
	Role        models.Role
	Status      models.AccountStatus
	WorkspaceID *string
}

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `
	id, email, password_hash, name, role, status, email_verified,
	workspace_id, oauth_provider, oauth_id, avatar_url,
	last_login_at, failed_login_count, locked_until, created_at, updated_at
`

func (r *AccountRepository) Create(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO accounts (
			id, email, password_hash, name, role, status, email_verified,
			workspace_id, oauth_provider, oauth_id, avatar_url,
			failed_login_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.Name,
		account.Role,
		account.Status,
		account.EmailVerified,
		account.WorkspaceID,
		account.OAuthProvider,
		account.OAuthID,
		account.AvatarURL,
	)
	return err
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetAuthRecord loads only the columns needed for authorization
// decisions.
func (r *AccountRepository) GetAuthRecord(ctx context.Context, id string) (AuthRecord, error) {
	const query = `
		SELECT id, email, name, role, status, workspace_id
		FROM accounts WHERE id = $1
	`

	row := r.pool.QueryRow(ctx, query, id)
	var rec AuthRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.Name,
		&rec.Role,
		&rec.Status,
		&rec.WorkspaceID,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthRecord{}, ErrAccountNotFound
		}
		return AuthRecord{}, err
	}
	return rec, nil
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	const query = `UPDATE accounts SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// MarkEmailVerified flips the verification flag and activates accounts
// still pending verification.
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET email_verified = TRUE,
			status = CASE WHEN status = 'PENDING_VERIFY' THEN 'ACTIVE' ELSE status END,
			updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// RecordLoginSuccess stamps last_login_at and clears lockout state.
func (r *AccountRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET last_login_at = NOW(), failed_login_count = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// RecordLoginFailure increments the failure counter and returns the new
// count so the caller can decide whether to lock the account.
func (r *AccountRepository) RecordLoginFailure(ctx context.Context, id string) (int, error) {
	const query = `
		UPDATE accounts
		SET failed_login_count = failed_login_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_count
	`
	row := r.pool.QueryRow(ctx, query, id)
	var count int
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return count, nil
}

func (r *AccountRepository) SetLockout(ctx context.Context, id string, until time.Time) error {
	const query = `UPDATE accounts SET locked_until = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, until)
	return err
}

// UpdatePassword rewrites the credential and clears lockout state.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	const query = `
		UPDATE accounts
		SET password_hash = $2, failed_login_count = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateName(ctx context.Context, id string, name string) error {
	const query = `UPDATE accounts SET name = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateAvatarURL(ctx context.Context, id string, avatarURL string) error {
	const query = `UPDATE accounts SET avatar_url = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, avatarURL)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// CountActiveInWorkspace backs the first-user-is-admin bootstrap rule.
func (r *AccountRepository) CountActiveInWorkspace(ctx context.Context, workspaceID string) (int, error) {
	const query = `SELECT COUNT(*) FROM accounts WHERE workspace_id = $1 AND status = 'ACTIVE'`
	row := r.pool.QueryRow(ctx, query, workspaceID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AccountRepository) ListByWorkspace(ctx context.Context, workspaceID string, limit, offset int) ([]models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE workspace_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := r.scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// PurgeStalePendingVerify removes accounts that never verified their
// email within the grace window.
func (r *AccountRepository) PurgeStalePendingVerify(ctx context.Context, olderThan time.Time) (int64, error) {
	const query = `DELETE FROM accounts WHERE status = 'PENDING_VERIFY' AND created_at < $1`
	cmd, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type accountScanner interface {
	Scan(dest ...any) error
}

func (r *AccountRepository) scanAccount(row accountScanner) (models.Account, error) {
	account, err := r.scanAccountRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

func (r *AccountRepository) scanAccountRow(row accountScanner) (models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.Name,
		&account.Role,
		&account.Status,
		&account.EmailVerified,
		&account.WorkspaceID,
		&account.OAuthProvider,
		&account.OAuthID,
		&account.AvatarURL,
		&account.LastLoginAt,
		&account.FailedLoginCount,
		&account.LockedUntil,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	return account, err
}
