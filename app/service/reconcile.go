package service

import (
	"crypto/subtle"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/token"
)

// IsLive reports whether presented is the token currently stored on the
// account for purpose p. An empty slot matches nothing. It says nothing about
// signature or expiry; callers validate with the codec first.
func IsLive(account *entity.Account, p token.Purpose, presented string) bool {
	if account == nil || presented == "" {
		return false
	}
	stored := account.Token(p)
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
