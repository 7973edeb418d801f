// Package auth supplies bearer tokens to the notes client and inspects them.
//
// Token refresh is not handled here: a source either has a usable token or it
// does not, and callers treat "no token" as the not-yet-authenticated state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Static returns a source that always yields token. JWT expiry, when present,
// is copied onto the token so expired tokens stop being handed out.
func Static(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(newToken(strings.TrimSpace(token)))
}

// File returns a source that reads the token from path. The file is re-read
// once the cached token has expired, so an external process can rotate it.
func File(path string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &fileSource{path: path})
}

// Env returns a source that reads the token from the environment variable
// name on every call.
func Env(name string) oauth2.TokenSource {
	return envSource(name)
}

type envSource string

func (e envSource) Token() (*oauth2.Token, error) {
	v := strings.TrimSpace(os.Getenv(string(e)))
	if v == "" {
		return nil, fmt.Errorf("auth: %s is not set", string(e))
	}
	return newToken(v), nil
}

type fileSource struct {
	path string
}

func (f *fileSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("auth: read token file: %w", err)
	}
	tok := newToken(strings.TrimSpace(string(data)))
	if tok.AccessToken == "" {
		return nil, errors.New("auth: token file is empty")
	}
	return tok, nil
}

func newToken(raw string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if c, err := Inspect(raw); err == nil && !c.Expiry.IsZero() {
		tok.Expiry = c.Expiry
	}
	return tok
}

// Provider resolves the access token for each operation. A nil Provider or
// source always yields "".
type Provider struct {
	mu  sync.Mutex
	src oauth2.TokenSource
}

// NewProvider wraps src.
func NewProvider(src oauth2.TokenSource) *Provider {
	return &Provider{src: src}
}

// SetSource swaps the underlying source, e.g. after a login or logout.
func (p *Provider) SetSource(src oauth2.TokenSource) {
	p.mu.Lock()
	p.src = src
	p.mu.Unlock()
}

// AccessToken returns the current token or "" when none is usable.
// Missing, unreadable and expired tokens all count as absent.
func (p *Provider) AccessToken(_ context.Context) string {
	if p == nil {
		return ""
	}
	p.mu.Lock()
	src := p.src
	p.mu.Unlock()
	if src == nil {
		return ""
	}
	tok, err := src.Token()
	if err != nil || tok == nil || !tok.Valid() {
		return ""
	}
	return tok.AccessToken
}

// Claims is the subset of JWT claims the client cares about.
type Claims struct {
	Subject string
	Issuer  string
	Expiry  time.Time
}

// Inspect decodes a JWT without verifying its signature. Opaque tokens return
// an error and callers should treat them as having no known expiry.
func Inspect(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("auth: inspect: %w", err)
	}
	return toClaims(&rc), nil
}

// Verify checks an HS256 token against secret.
func Verify(token, secret string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &rc, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, fmt.Errorf("auth: verify: %w", err)
	}
	return toClaims(&rc), nil
}

// Mint signs a development token for subject valid for ttl.
func Mint(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("auth: secret is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "quire",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func toClaims(rc *jwt.RegisteredClaims) Claims {
	c := Claims{Subject: rc.Subject, Issuer: rc.Issuer}
	if rc.ExpiresAt != nil {
		c.Expiry = rc.ExpiresAt.Time
	}
	return c
}
