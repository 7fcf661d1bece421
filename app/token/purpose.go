package token

import (
	"errors"
	"time"
)

var ErrInvalidPurpose = errors.New("invalid token purpose")

// Purpose selects the signing domain of a token and the account field that
// governs its revocation.
type Purpose uint8

const (
	PurposeVerify Purpose = iota + 1
	PurposeAuth
	PurposeRefresh
	PurposeReset
)

// Purposes lists every known purpose in a stable order.
var Purposes = []Purpose{PurposeVerify, PurposeAuth, PurposeRefresh, PurposeReset}

func (p Purpose) String() string {
	switch p {
	case PurposeVerify:
		return "verify"
	case PurposeAuth:
		return "auth"
	case PurposeRefresh:
		return "refresh"
	case PurposeReset:
		return "reset"
	default:
		return "unknown"
	}
}

func (p Purpose) Valid() bool {
	return p >= PurposeVerify && p <= PurposeReset
}

func ParsePurpose(value string) (Purpose, error) {
	for _, p := range Purposes {
		if p.String() == value {
			return p, nil
		}
	}
	return 0, ErrInvalidPurpose
}

// Domain is the signing secret and default lifetime of one purpose.
type Domain struct {
	Secret   []byte
	Lifetime time.Duration
}

// Registry maps each purpose to its signing domain.
type Registry struct {
	domains map[Purpose]Domain
}

// NewRegistry requires a domain for every purpose, each with a non-empty
// secret that no other purpose shares.
func NewRegistry(domains map[Purpose]Domain) (*Registry, error) {
	seen := make(map[string]Purpose, len(domains))
	copied := make(map[Purpose]Domain, len(domains))

	for _, p := range Purposes {
		d, ok := domains[p]
		if !ok {
			return nil, errors.New("missing signing domain for purpose " + p.String())
		}
		if len(d.Secret) == 0 {
			return nil, errors.New("empty signing secret for purpose " + p.String())
		}
		if d.Lifetime <= 0 {
			return nil, errors.New("non-positive lifetime for purpose " + p.String())
		}
		if other, dup := seen[string(d.Secret)]; dup {
			return nil, errors.New("purposes " + other.String() + " and " + p.String() + " share a signing secret")
		}
		seen[string(d.Secret)] = p
		copied[p] = Domain{Secret: append([]byte(nil), d.Secret...), Lifetime: d.Lifetime}
	}

	for p := range domains {
		if !p.Valid() {
			return nil, ErrInvalidPurpose
		}
	}

	return &Registry{domains: copied}, nil
}

func (r *Registry) Lookup(p Purpose) (Domain, error) {
	d, ok := r.domains[p]
	if !ok {
		return Domain{}, ErrInvalidPurpose
	}
	return d, nil
}
