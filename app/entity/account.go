package entity

import (
	"time"

	"github.com/vibast-solutions/ms-go-account/app/token"
)

type AccountState string

const (
	StatePendingVerification AccountState = "pending_verification"
	StateLoggedIn            AccountState = "logged_in"
	StateLoggedOut           AccountState = "logged_out"
)

// Account holds at most one live token per purpose. An empty field means no
// live token of that purpose exists.
type Account struct {
	ID             string
	Username       string
	Email          string
	CanonicalEmail string
	PasswordHash   string
	VerifyToken    string
	AuthToken      string
	RefreshToken   string
	ResetToken     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *Account) Token(p token.Purpose) string {
	switch p {
	case token.PurposeVerify:
		return a.VerifyToken
	case token.PurposeAuth:
		return a.AuthToken
	case token.PurposeRefresh:
		return a.RefreshToken
	case token.PurposeReset:
		return a.ResetToken
	default:
		return ""
	}
}

// SetToken overwrites the stored value of a purpose, superseding whatever
// token was live before.
func (a *Account) SetToken(p token.Purpose, value string) {
	switch p {
	case token.PurposeVerify:
		a.VerifyToken = value
	case token.PurposeAuth:
		a.AuthToken = value
	case token.PurposeRefresh:
		a.RefreshToken = value
	case token.PurposeReset:
		a.ResetToken = value
	}
}

func (a *Account) ClearToken(p token.Purpose) {
	a.SetToken(p, "")
}

func (a *Account) IsTokenEmpty(p token.Purpose) bool {
	return a.Token(p) == ""
}

func (a *Account) IsVerified() bool {
	return a.IsTokenEmpty(token.PurposeVerify)
}

// State summarises the lifecycle position. Login state follows the refresh
// slot since that is what a session is revoked through.
func (a *Account) State() AccountState {
	if !a.IsVerified() {
		return StatePendingVerification
	}
	if a.IsTokenEmpty(token.PurposeRefresh) {
		return StateLoggedOut
	}
	return StateLoggedIn
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
