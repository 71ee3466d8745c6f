package ports

import (
	"context"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
)

// SessionStore persists session state by opaque session id
type SessionStore interface {
	// Get returns core.ErrSessionNotFound when the id is unknown or expired.
	Get(ctx context.Context, id string) (*core.Session, error)
	Set(ctx context.Context, id string, session *core.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
