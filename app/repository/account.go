package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/token"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

const accountColumns = `id, username, email, canonical_email, password_hash,
		       verify_token, auth_token, refresh_token, reset_token, created_at, updated_at`

type AccountRepository struct {
	db   DBTX
	conn *sql.DB
}

// NewAccountRepository binds the repository to db. When db is a *sql.DB the
// repository can open its own transactions; when it is a *sql.Tx every call
// joins that transaction.
func NewAccountRepository(db DBTX) *AccountRepository {
	repo := &AccountRepository{db: db}
	if conn, ok := db.(*sql.DB); ok {
		repo.conn = conn
	}
	return repo
}

func (r *AccountRepository) WithinTx(ctx context.Context, fn func(store AccountStore) error) error {
	if r.conn == nil {
		return fn(r)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = fn(NewAccountRepository(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	query := `
		INSERT INTO accounts (id, username, email, canonical_email, password_hash,
		                      verify_token, auth_token, refresh_token, reset_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.CanonicalEmail,
		account.PasswordHash,
		account.VerifyToken,
		account.AuthToken,
		account.RefreshToken,
		account.ResetToken,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, canonicalEmail string) (*entity.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE canonical_email = ?
	`
	return r.findOne(ctx, query, canonicalEmail)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

func (r *AccountRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE id = ? FOR UPDATE
	`
	return r.findOne(ctx, query, id)
}

func (r *AccountRepository) FindByToken(ctx context.Context, p token.Purpose, value string) (*entity.Account, error) {
	column, err := tokenColumn(p)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}

	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE ` + column + ` = ?
	`
	return r.findOne(ctx, query, value)
}

func (r *AccountRepository) FindByTokenForUpdate(ctx context.Context, p token.Purpose, value string) (*entity.Account, error) {
	column, err := tokenColumn(p)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}

	query := `
		SELECT ` + accountColumns + `
		FROM accounts WHERE ` + column + ` = ? FOR UPDATE
	`
	return r.findOne(ctx, query, value)
}

func (r *AccountRepository) Save(ctx context.Context, account *entity.Account) error {
	query := `
		UPDATE accounts SET
			username = ?,
			email = ?,
			canonical_email = ?,
			password_hash = ?,
			verify_token = ?,
			auth_token = ?,
			refresh_token = ?,
			reset_token = ?,
			updated_at = ?
		WHERE id = ?
	`
	account.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		account.Username,
		account.Email,
		account.CanonicalEmail,
		account.PasswordHash,
		account.VerifyToken,
		account.AuthToken,
		account.RefreshToken,
		account.ResetToken,
		account.UpdatedAt,
		account.ID,
	)
	return err
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg any) (*entity.Account, error) {
	account := &entity.Account{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.CanonicalEmail,
		&account.PasswordHash,
		&account.VerifyToken,
		&account.AuthToken,
		&account.RefreshToken,
		&account.ResetToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// tokenColumn keeps column names out of caller-controlled input.
func tokenColumn(p token.Purpose) (string, error) {
	switch p {
	case token.PurposeVerify:
		return "verify_token", nil
	case token.PurposeAuth:
		return "auth_token", nil
	case token.PurposeRefresh:
		return "refresh_token", nil
	case token.PurposeReset:
		return "reset_token", nil
	default:
		return "", fmt.Errorf("%w: %d", token.ErrInvalidPurpose, p)
	}
}
