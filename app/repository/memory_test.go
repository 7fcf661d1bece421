package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) *repository.MemoryAccountRepository {
	t.Helper()

	repo := repository.NewMemoryAccountRepository()
	err := repo.Create(context.Background(), &entity.Account{
		ID:             "acc-1",
		Username:       "bob",
		Email:          "Bob@X.com",
		CanonicalEmail: "bob@x.com",
		PasswordHash:   "hash",
		VerifyToken:    "verify-tok",
	})
	require.NoError(t, err)
	return repo
}

func TestMemoryAccountRepository_CreateRejectsDuplicateEmail(t *testing.T) {
	repo := seedMemory(t)

	err := repo.Create(context.Background(), &entity.Account{ID: "acc-2", CanonicalEmail: "bob@x.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	assert.Equal(t, 1, repo.Len())
}

func TestMemoryAccountRepository_ReturnsCopies(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	account, err := repo.FindByID(ctx, "acc-1")
	require.NoError(t, err)
	account.VerifyToken = ""

	again, err := repo.FindByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "verify-tok", again.VerifyToken)
}

func TestMemoryAccountRepository_FindByToken(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	account, err := repo.FindByToken(ctx, token.PurposeVerify, "verify-tok")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "acc-1", account.ID)

	account, err = repo.FindByToken(ctx, token.PurposeRefresh, "")
	require.NoError(t, err)
	assert.Nil(t, account)

	_, err = repo.FindByToken(ctx, token.Purpose(0), "verify-tok")
	assert.ErrorIs(t, err, token.ErrInvalidPurpose)
}

func TestMemoryAccountRepository_WithinTxDiscardsOnError(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByIDForUpdate(ctx, "acc-1")
		if err != nil {
			return err
		}
		account.ClearToken(token.PurposeVerify)
		if err := store.Save(ctx, account); err != nil {
			return err
		}

		staged, err := store.FindByToken(ctx, token.PurposeVerify, "verify-tok")
		if err != nil {
			return err
		}
		assert.Nil(t, staged)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	account, err := repo.FindByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "verify-tok", account.VerifyToken)
}

func TestMemoryAccountRepository_WithinTxCommitsDelete(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	err := repo.WithinTx(ctx, func(store repository.AccountStore) error {
		account, err := store.FindByTokenForUpdate(ctx, token.PurposeVerify, "verify-tok")
		if err != nil {
			return err
		}
		return store.Delete(ctx, account.ID)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.Len())

	// the freed email can be registered again
	err = repo.Create(ctx, &entity.Account{ID: "acc-2", CanonicalEmail: "bob@x.com"})
	assert.NoError(t, err)
}

func TestMemoryAccountRepository_WithinTxHonoursCancellation(t *testing.T) {
	repo := seedMemory(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := repo.WithinTx(ctx, func(store repository.AccountStore) error {
		cancel()
		return store.Delete(ctx, "acc-1")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, repo.Len())
}
