// Package auth issues and verifies operator tokens and implements
// visitcontent.AuthProvider on top of them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 12 * time.Hour

// MinSecretLength is the shortest HS256 secret accepted.
const MinSecretLength = 16

const claimEmail = "email"

// Provider signs HS256 tokens and resolves the identity of a request from
// the token the jwtauth verifier placed in its context. Signed-out tokens are
// remembered until they expire.
type Provider struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration

	mu        sync.Mutex
	revoked   map[string]time.Time
	listeners map[int]func(*visitcontent.Identity)
	nextID    int
}

// Option configures a Provider.
type Option func(*Provider)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(p *Provider) { p.ttl = d }
}

var _ visitcontent.AuthProvider = (*Provider)(nil)

// New creates a provider signing with secret.
func New(secret []byte, opts ...Option) (*Provider, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	p := &Provider{
		ja:        jwtauth.New("HS256", secret, nil),
		ttl:       DefaultTTL,
		revoked:   make(map[string]time.Time),
		listeners: make(map[int]func(*visitcontent.Identity)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Issue signs a token for identity and announces the sign-in to listeners.
func (p *Provider) Issue(identity visitcontent.Identity) (string, error) {
	if identity.IsZero() {
		return "", errors.New("identity id is required")
	}
	claims := map[string]interface{}{
		"sub":      identity.ID,
		"jti":      uuid.NewString(),
		claimEmail: identity.Email,
	}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiry(claims, time.Now().Add(p.ttl))

	_, token, err := p.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	p.notify(&identity)
	return token, nil
}

// Verifier finds and verifies a bearer token in the Authorization header.
// Cookies are ignored so a cross-site request cannot ride an ambient
// session. It never rejects a request; Current reports the outcome.
func (p *Provider) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(p.ja, jwtauth.TokenFromHeader)
}

// Parse verifies a raw token outside of an HTTP request.
func (p *Provider) Parse(ctx context.Context, token string) (*visitcontent.Identity, error) {
	t, err := p.ja.Decode(token)
	if err != nil || t == nil {
		return nil, fmt.Errorf("%w: invalid token", visitcontent.ErrAccessRestricted)
	}
	if exp := t.Expiration(); !exp.IsZero() && time.Now().After(exp) {
		return nil, fmt.Errorf("%w: token expired", visitcontent.ErrAccessRestricted)
	}
	claims, err := t.AsMap(ctx)
	if err != nil {
		return nil, err
	}
	identity, ok := p.identity(claims)
	if !ok {
		return nil, visitcontent.ErrAccessRestricted
	}
	return identity, nil
}

// Current returns the identity bound to ctx: one set with WithIdentity, or a
// verified, unrevoked token.
func (p *Provider) Current(ctx context.Context) (*visitcontent.Identity, bool) {
	if identity, ok := ctx.Value(identityKey{}).(visitcontent.Identity); ok && !identity.IsZero() {
		return &identity, true
	}
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return nil, false
	}
	return p.identity(claims)
}

// OnChange registers fn for sign-in and sign-out. A sign-out passes nil.
func (p *Provider) OnChange(fn func(*visitcontent.Identity)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SignOut revokes the token bound to ctx.
func (p *Provider) SignOut(ctx context.Context) error {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return visitcontent.ErrAccessRestricted
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return visitcontent.ErrAccessRestricted
	}

	now := time.Now()
	p.mu.Lock()
	for k, exp := range p.revoked {
		if now.After(exp) {
			delete(p.revoked, k)
		}
	}
	p.revoked[jti] = token.Expiration()
	p.mu.Unlock()

	p.notify(nil)
	return nil
}

func (p *Provider) identity(claims map[string]interface{}) (*visitcontent.Identity, bool) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, false
	}
	if jti, _ := claims["jti"].(string); jti != "" {
		p.mu.Lock()
		_, revoked := p.revoked[jti]
		p.mu.Unlock()
		if revoked {
			return nil, false
		}
	}
	email, _ := claims[claimEmail].(string)
	return &visitcontent.Identity{ID: sub, Email: email}, true
}

func (p *Provider) notify(identity *visitcontent.Identity) {
	p.mu.Lock()
	fns := make([]func(*visitcontent.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(identity)
	}
}

type identityKey struct{}

// WithIdentity binds identity to ctx directly. Command-line tools use it
// where there is no token.
func WithIdentity(ctx context.Context, identity visitcontent.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}
