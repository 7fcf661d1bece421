package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformed = errors.New("token is malformed")
	ErrExpired   = errors.New("token has expired")
)

const issuer = "ms-go-account"

// Claims carries the subject account id. The audience holds the purpose so a
// token presented for the wrong purpose fails even if secrets were reused.
type Claims struct {
	jwt.RegisteredClaims
}

// Payload is what a successful validation yields.
type Payload struct {
	ID        string
	Subject   string
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type CodecOption func(*Codec)

// WithClock replaces time.Now for issuing and validating.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// Codec issues and validates signed, time-bounded tokens. It holds no
// mutable state.
type Codec struct {
	registry *Registry
	now      func() time.Time
}

func NewCodec(registry *Registry, opts ...CodecOption) *Codec {
	c := &Codec{
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultLifetime returns the configured lifetime of a purpose.
func (c *Codec) DefaultLifetime(p Purpose) (time.Duration, error) {
	d, err := c.registry.Lookup(p)
	if err != nil {
		return 0, err
	}
	return d.Lifetime, nil
}

// Issue signs a token for subject. A non-positive lifetime selects the
// purpose default.
func (c *Codec) Issue(subject string, p Purpose, lifetime time.Duration) (string, error) {
	d, err := c.registry.Lookup(p)
	if err != nil {
		return "", err
	}
	if lifetime <= 0 {
		lifetime = d.Lifetime
	}

	now := c.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{p.String()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", p, err)
	}
	return signed, nil
}

// Validate checks the signature against the purpose secret and the expiry
// against the clock. ErrExpired is only returned for a correctly signed
// token; every other failure is ErrMalformed.
func (c *Codec) Validate(tokenString string, p Purpose) (*Payload, error) {
	d, err := c.registry.Lookup(p)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return d.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(p.String()),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrMalformed
	}

	payload := &Payload{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Purpose:   p,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	return payload, nil
}
