// Package identity resolves the user behind a request.
//
// Authenticated users carry a signed bearer token; anonymous sessions are
// keyed by a device id the client generates and presents instead. Both
// shapes collapse into an Identity value the rest of the service consumes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, expired and badly signed tokens.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrNoSecret is returned when a provider is built without key material.
	ErrNoSecret = errors.New("identity: signing secret is empty")
)

// Identity describes who is making a request.
type Identity struct {
	UserID  string `json:"userId"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	Admin   bool   `json:"admin"`
}

// Anonymous returns an identity for an unauthenticated device session.
// Anonymous identities have no user id; progress is scoped by the device id
// at the caching layer instead.
func Anonymous() Identity {
	return Identity{}
}

// IsAnonymous reports whether the identity belongs to no signed-in user.
func (i Identity) IsAnonymous() bool { return i.UserID == "" }

// Provider verifies a bearer token and resolves it to an Identity.
type Provider interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

type claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HMAC-signed tokens. Admin status is derived from a
// configured email allowlist rather than a token claim so it cannot be
// minted client-side.
type JWTProvider struct {
	secret      []byte
	adminEmails map[string]struct{}
}

// NewJWTProvider builds a provider from a shared secret and the list of
// admin emails.
func NewJWTProvider(secret string, adminEmails []string) (*JWTProvider, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[e] = struct{}{}
	}
	return &JWTProvider{secret: []byte(secret), adminEmails: admins}, nil
}

// Verify parses and validates the token signature and expiry.
func (p *JWTProvider) Verify(_ context.Context, token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	_, admin := p.adminEmails[c.Email]
	return Identity{
		UserID:  c.Subject,
		Name:    c.Name,
		Email:   c.Email,
		Picture: c.Picture,
		Admin:   admin,
	}, nil
}

// Issue signs a token for an identity, valid for ttl. Used by tests and by
// local tooling that needs a token against a dev instance.
func (p *JWTProvider) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Name:    id.Name,
		Email:   id.Email,
		Picture: id.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// StaticProvider resolves fixed tokens to fixed identities. Test helper.
type StaticProvider map[string]Identity

func (p StaticProvider) Verify(_ context.Context, token string) (Identity, error) {
	id, ok := p[token]
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
