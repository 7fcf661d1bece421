package service

import (
	"context"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/repository"
)

// CredentialAuthenticator matches an email and plaintext password against the
// stored credential hash.
type CredentialAuthenticator struct {
	accounts repository.AccountStore
	hasher   PasswordHasher
}

func NewCredentialAuthenticator(accounts repository.AccountStore, hasher PasswordHasher) *CredentialAuthenticator {
	return &CredentialAuthenticator{accounts: accounts, hasher: hasher}
}

// Authenticate returns the account or one of ErrNoSuchAccount,
// ErrCredentialMismatch, ErrInternal. It never returns both.
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, email, password string) (*entity.Account, error) {
	account, err := a.accounts.FindByEmail(ctx, CanonicalizeEmail(email))
	if err != nil {
		return nil, boundary(err)
	}
	if account == nil {
		return nil, ErrNoSuchAccount
	}
	if !a.hasher.Matches(password, account.PasswordHash) {
		return nil, ErrCredentialMismatch
	}
	return account, nil
}
