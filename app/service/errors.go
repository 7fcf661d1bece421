package service

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-account/app/repository"
	"github.com/vibast-solutions/ms-go-account/app/token"
)

var (
	ErrInvalidPurpose     = errors.New("invalid token purpose")
	ErrTokenMalformed     = errors.New("token is malformed")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrNoSuchAccount      = errors.New("no such account")
	ErrNoSuchSession      = errors.New("no such session")
	ErrCredentialMismatch = errors.New("credentials do not match")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrNotVerified        = errors.New("account is not verified")
	ErrAlreadyVerified    = errors.New("account is already verified")
	ErrWeakPassword       = errors.New("password does not meet policy requirements")
	ErrInternal           = errors.New("internal error")
)

const (
	CodeInvalidPurpose     = "invalid_purpose"
	CodeTokenMalformed     = "token_malformed"
	CodeTokenExpired       = "token_expired"
	CodeTokenRevoked       = "token_revoked"
	CodeNoSuchAccount      = "no_such_account"
	CodeNoSuchSession      = "no_such_session"
	CodeCredentialMismatch = "credential_mismatch"
	CodeDuplicateEmail     = "duplicate_email"
	CodeNotVerified        = "not_verified"
	CodeAlreadyVerified    = "already_verified"
	CodeWeakPassword       = "weak_password"
	CodeInternal           = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidPurpose, CodeInvalidPurpose},
	{ErrTokenMalformed, CodeTokenMalformed},
	{ErrTokenExpired, CodeTokenExpired},
	{ErrTokenRevoked, CodeTokenRevoked},
	{ErrNoSuchAccount, CodeNoSuchAccount},
	{ErrNoSuchSession, CodeNoSuchSession},
	{ErrCredentialMismatch, CodeCredentialMismatch},
	{ErrDuplicateEmail, CodeDuplicateEmail},
	{ErrNotVerified, CodeNotVerified},
	{ErrAlreadyVerified, CodeAlreadyVerified},
	{ErrWeakPassword, CodeWeakPassword},
}

// ErrorCode returns the stable machine-readable code of an error returned by
// this package. Anything unrecognised is "internal".
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// known reports whether err already carries one of the package error kinds.
func known(err error) bool {
	if errors.Is(err, ErrInternal) {
		return true
	}
	return ErrorCode(err) != CodeInternal
}

// boundary translates collaborator failures into package error kinds. Raw
// store errors are folded into ErrInternal with their text kept for logs.
func boundary(err error) error {
	switch {
	case err == nil:
		return nil
	case known(err):
		return err
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrMalformed):
		return ErrTokenMalformed
	case errors.Is(err, token.ErrInvalidPurpose):
		return ErrInvalidPurpose
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
