// Package credentials signs short-lived bearer tokens for the Google Sheets
// API from a service account key.
package credentials

import (
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	// Audience is the API audience the assertion is issued for.
	Audience = "https://sheets.googleapis.com/"
	// Lifetime is how long a generated token stays valid.
	Lifetime = 3600 * time.Second
)

// ServiceAccount identifies the signer.
type ServiceAccount struct {
	Email string
	KeyID string
	Key   KeyTuple
}

// BearerToken is a signed assertion and the instant it stops being valid.
type BearerToken struct {
	Value  string
	Expiry time.Time
}

// ValidAt reports whether the token may still be used at now.
func (t BearerToken) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.Expiry)
}

// SigningError means no token could be produced from the key material.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("failed to sign token: %v", e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// Manager hands out cached tokens and regenerates them once expired. It is
// the only place tokens are created.
type Manager struct {
	account ServiceAccount
	clock   clock.Clock

	mu     sync.Mutex
	key    *rsa.PrivateKey
	cached *BearerToken
}

// Option configures a Manager.
type Option func(*Manager)

// UseClock sets the clock used by Token.
func UseClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func NewManager(account ServiceAccount, opts ...Option) *Manager {
	m := &Manager{
		account: account,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a valid token for the current time.
func (m *Manager) Token() (BearerToken, error) {
	return m.TokenAt(m.clock.Now())
}

// TokenAt returns the cached token if it is still valid at now, otherwise it
// generates and caches a new one.
func (m *Manager) TokenAt(now time.Time) (BearerToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.cached.ValidAt(now) {
		return *m.cached, nil
	}

	t, err := m.generate(now)
	if err != nil {
		return BearerToken{}, err
	}
	m.cached = &t
	return t, nil
}

// Generate signs a new token issued at now. It does not touch the cache.
func (m *Manager) Generate(now time.Time) (BearerToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.generate(now)
}

func (m *Manager) generate(now time.Time) (BearerToken, error) {
	if m.key == nil {
		key, err := m.account.Key.PrivateKey()
		if err != nil {
			return BearerToken{}, &SigningError{Err: fmt.Errorf("malformed private key: %w", err)}
		}
		m.key = key
	}

	// JWT times are whole seconds, so expiry is iat+3600 with iat truncated.
	issued := now.Truncate(time.Second)
	expiry := issued.Add(Lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    m.account.Email,
		Subject:   m.account.Email,
		Audience:  jwt.ClaimStrings{Audience},
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expiry),
	})
	if m.account.KeyID != "" {
		token.Header["kid"] = m.account.KeyID
	}

	signed, err := token.SignedString(m.key)
	if err != nil {
		return BearerToken{}, &SigningError{Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"issuer": m.account.Email,
		"expiry": expiry.Format(time.RFC3339),
	}).Debug("generated bearer token")

	return BearerToken{Value: signed, Expiry: expiry}, nil
}
