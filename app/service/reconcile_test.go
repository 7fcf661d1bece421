package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/service"
	"github.com/vibast-solutions/ms-go-account/app/token"

	"golang.org/x/crypto/bcrypt"
)

func TestIsLive(t *testing.T) {
	account := &entity.Account{AuthToken: "a", RefreshToken: "r"}

	cases := []struct {
		name      string
		account   *entity.Account
		purpose   token.Purpose
		presented string
		want      bool
	}{
		{"stored value matches", account, token.PurposeAuth, "a", true},
		{"different value", account, token.PurposeAuth, "b", false},
		{"other purpose slot", account, token.PurposeRefresh, "a", false},
		{"empty slot never matches", account, token.PurposeReset, "", false},
		{"empty presented", account, token.PurposeAuth, "", false},
		{"nil account", nil, token.PurposeAuth, "a", false},
	}

	for _, tc := range cases {
		if got := service.IsLive(tc.account, tc.purpose, tc.presented); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestCredentialAuthenticator(t *testing.T) {
	store := repository.NewMemoryAccountRepository()
	hasher := service.NewBcryptHasher(bcrypt.MinCost)
	hashed, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err = store.Create(context.Background(), &entity.Account{ID: "acc-1", Email: "bob@x.com", CanonicalEmail: "bob@x.com", PasswordHash: hashed}); err != nil {
		t.Fatalf("create: %v", err)
	}

	auth := service.NewCredentialAuthenticator(store, hasher)

	account, err := auth.Authenticate(context.Background(), " BOB@x.com ", testPassword)
	if err != nil || account == nil || account.ID != "acc-1" {
		t.Fatalf("expected account, got (%+v, %v)", account, err)
	}
	account, err = auth.Authenticate(context.Background(), "bob@x.com", "nope")
	if !errors.Is(err, service.ErrCredentialMismatch) || account != nil {
		t.Fatalf("expected ErrCredentialMismatch without account, got (%+v, %v)", account, err)
	}
	account, err = auth.Authenticate(context.Background(), "eve@x.com", testPassword)
	if !errors.Is(err, service.ErrNoSuchAccount) || account != nil {
		t.Fatalf("expected ErrNoSuchAccount without account, got (%+v, %v)", account, err)
	}
}

func TestBcryptHasher_FallsBackToDefaultCost(t *testing.T) {
	hasher := service.NewBcryptHasher(99)
	hashed, err := hasher.Hash("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d (%v)", cost, err)
	}
	if !hasher.Matches("pw", hashed) || hasher.Matches("other", hashed) {
		t.Fatalf("unexpected match result")
	}
}
