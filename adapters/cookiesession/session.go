package cookiesession

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dshuvalov/jumper-challenge/core"
)

// Session is the request-scoped handle over one client's session state
type Session struct {
	manager *Manager
	w       http.ResponseWriter
	id      string
	values  *core.Session
	isNew   bool
}

// ID returns the opaque session id
func (s *Session) ID() string {
	return s.id
}

// IsNew reports whether the session has never been persisted
func (s *Session) IsNew() bool {
	return s.isNew
}

// Values returns the mutable session contents
func (s *Session) Values() *core.Session {
	return s.values
}

// Save persists the session and refreshes the cookie and its expiry
func (s *Session) Save(ctx context.Context) error {
	encoded, err := s.manager.codec.Encode(s.manager.name, s.id)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w: %w", core.ErrStoreOperationFailed, err)
	}

	if err := s.manager.store.Set(ctx, s.id, s.values, s.manager.ttl); err != nil {
		return err
	}

	http.SetCookie(s.w, s.manager.cookie(encoded, int(s.manager.ttl.Seconds())))
	s.isNew = false

	return nil
}

// Destroy deletes the stored session and expires the cookie
func (s *Session) Destroy(ctx context.Context) error {
	if err := s.manager.store.Delete(ctx, s.id); err != nil {
		return err
	}

	http.SetCookie(s.w, s.manager.cookie("", -1))
	s.values.Reset()

	return nil
}
