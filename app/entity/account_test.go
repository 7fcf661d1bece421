package entity

import (
	"testing"

	"github.com/vibast-solutions/ms-go-account/app/token"
)

func TestAccount_TokenSlots(t *testing.T) {
	a := &Account{}
	for _, p := range token.Purposes {
		if !a.IsTokenEmpty(p) {
			t.Fatalf("expected %s slot to start empty", p)
		}
		a.SetToken(p, "tok-"+p.String())
	}

	if a.VerifyToken != "tok-verify" || a.AuthToken != "tok-auth" || a.RefreshToken != "tok-refresh" || a.ResetToken != "tok-reset" {
		t.Fatalf("tokens landed in wrong fields: %+v", a)
	}

	a.SetToken(token.PurposeAuth, "tok-auth-2")
	if a.Token(token.PurposeAuth) != "tok-auth-2" {
		t.Fatalf("expected overwrite, got %q", a.AuthToken)
	}

	a.ClearToken(token.PurposeReset)
	if !a.IsTokenEmpty(token.PurposeReset) {
		t.Fatalf("expected reset slot cleared")
	}

	a.SetToken(token.Purpose(99), "ignored")
	if a.Token(token.Purpose(99)) != "" {
		t.Fatalf("unknown purpose must not map to a field")
	}
}

func TestAccount_State(t *testing.T) {
	a := &Account{VerifyToken: "v"}
	if a.State() != StatePendingVerification {
		t.Fatalf("expected pending, got %s", a.State())
	}

	a.VerifyToken = ""
	if a.State() != StateLoggedOut {
		t.Fatalf("expected logged out, got %s", a.State())
	}

	a.RefreshToken = "r"
	a.AuthToken = "a"
	if a.State() != StateLoggedIn {
		t.Fatalf("expected logged in, got %s", a.State())
	}
}

func TestAccount_CloneIsIndependent(t *testing.T) {
	a := &Account{ID: "1", AuthToken: "a"}
	c := a.Clone()
	c.AuthToken = "b"
	if a.AuthToken != "a" {
		t.Fatalf("clone shares state with original")
	}
	if (*Account)(nil).Clone() != nil {
		t.Fatalf("nil clone must be nil")
	}
}
