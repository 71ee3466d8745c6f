// Package cookiesession binds server-side session state to an encrypted,
// signed cookie that carries only the session id.
package cookiesession

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

// DefaultCookieName is the name of the session cookie
const DefaultCookieName = "session"

// MinSecretLength is the minimum accepted length of the cookie secret
const MinSecretLength = 32

var ErrWeakSecret = fmt.Errorf("session secret must be at least %d characters", MinSecretLength)

// Manager loads and persists sessions for HTTP requests
type Manager struct {
	store  ports.SessionStore
	codec  *securecookie.SecureCookie
	ttl    time.Duration
	name   string
	secure bool
	now    func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithCookieName overrides the cookie name
func WithCookieName(name string) Option {
	return func(m *Manager) {
		m.name = name
	}
}

// WithSecure controls the Secure cookie attribute
func WithSecure(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithClock overrides the clock used to stamp new sessions
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager. Hash and encryption keys are
// derived from secret with HKDF-SHA256.
func NewManager(store ports.SessionStore, secret string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	hashKey, err := deriveKey(secret, "jumper session hash key", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, "jumper session block key", 32)
	if err != nil {
		return nil, err
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(ttl.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})

	m := &Manager{
		store:  store,
		codec:  codec,
		ttl:    ttl,
		name:   DefaultCookieName,
		secure: true,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

// TTL returns the session lifetime
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load returns the session referenced by the request cookie. A missing,
// tampered or expired cookie yields a fresh unsaved session. Only store
// failures are returned as errors.
func (m *Manager) Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(m.name); err == nil {
		var id string
		if err := m.codec.Decode(m.name, cookie.Value, &id); err == nil && id != "" {
			values, err := m.store.Get(ctx, id)
			switch {
			case err == nil:
				return &Session{manager: m, w: w, id: id, values: values}, nil
			case !errors.Is(err, core.ErrSessionNotFound):
				return nil, fmt.Errorf("failed to load session: %w", err)
			}
		}
	}

	return m.fresh(w), nil
}

func (m *Manager) fresh(w http.ResponseWriter) *Session {
	return &Session{
		manager: m,
		w:       w,
		id:      uuid.NewString(),
		values:  &core.Session{CreatedAt: m.now().UTC()},
		isNew:   true,
	}
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:        m.name,
		Value:       value,
		Path:        "/",
		MaxAge:      maxAge,
		HttpOnly:    true,
		Secure:      m.secure,
		SameSite:    http.SameSiteNoneMode,
		Partitioned: true,
	}
}
