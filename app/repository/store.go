package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/token"
)

var ErrDuplicateEmail = errors.New("email already registered")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AccountStore is the keyed account repository. Finders return (nil, nil)
// when nothing matches. The ForUpdate variants lock the returned account
// until the surrounding transaction ends.
type AccountStore interface {
	Create(ctx context.Context, account *entity.Account) error
	FindByEmail(ctx context.Context, canonicalEmail string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	FindByIDForUpdate(ctx context.Context, id string) (*entity.Account, error)
	FindByToken(ctx context.Context, p token.Purpose, value string) (*entity.Account, error)
	FindByTokenForUpdate(ctx context.Context, p token.Purpose, value string) (*entity.Account, error)
	Save(ctx context.Context, account *entity.Account) error
	Delete(ctx context.Context, id string) error
}

// Store runs fn with an AccountStore whose writes commit together, or not at
// all when fn returns an error.
type Store interface {
	AccountStore
	WithinTx(ctx context.Context, fn func(store AccountStore) error) error
}
