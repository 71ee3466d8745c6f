package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
)

var _ ports.SessionStore = (*MemoryStore)(nil)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the SessionStore interface
type MemoryStore struct {
	sessions map[string]memoryEntry
	mu       sync.RWMutex
	now      func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for expiry
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a new in-memory store. Expired entries are dropped
// on read and by Sweep.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the stored session
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	entry, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil, core.ErrSessionNotFound
	}

	if !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		// Only delete if the entry was not refreshed in the meantime
		if current, ok := s.sessions[id]; ok && !current.expiresAt.After(entry.expiresAt) {
			delete(s.sessions, id)
		}
		s.mu.Unlock()
		return nil, core.ErrSessionNotFound
	}

	var session core.Session
	if err := json.Unmarshal(entry.payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w: %w", core.ErrStoreOperationFailed, err)
	}

	return &session, nil
}

// Set stores the session until ttl elapses
func (s *MemoryStore) Set(ctx context.Context, id string, session *core.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w: %w", core.ErrStoreOperationFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = memoryEntry{payload: payload, expiresAt: s.now().Add(ttl)}

	return nil
}

// Sweep drops expired sessions and returns how many were removed
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Delete removes the session, if any
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
