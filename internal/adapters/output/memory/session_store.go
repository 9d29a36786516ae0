package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"
)

// Compile-time check to ensure MemorySessionStore implements SessionStore interface
var _ output.SessionStore = (*MemorySessionStore)(nil)
var _ output.RateCounter = (*MemorySessionStore)(nil)

type record struct {
	session   *domain.Session
	expiresAt time.Time
}

type counter struct {
	count     int64
	expiresAt time.Time
}

// MemorySessionStore struct - Output adapter for in-memory session storage
// Sessions are stored as deep copies so callers never share state with the store.
// A single mutex makes the version check and the write one atomic step.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]record
	counters map[string]counter
	now      func() time.Time
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]record),
		counters: make(map[string]counter),
		now:      time.Now,
	}
}

// WithClock replaces the time source used for expiry
func (m *MemorySessionStore) WithClock(now func() time.Time) *MemorySessionStore {
	m.now = now
	return m
}

// Get retrieves a session by id. Expired sessions are deleted (lazy cleanup).
func (m *MemorySessionStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.sessions[sessionID]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	if !m.now().Before(rec.expiresAt) {
		// Lazy cleanup: delete expired session
		delete(m.sessions, sessionID)
		return nil, domain.ErrSessionNotFound
	}

	return rec.session.Clone(), nil
}

// Put stores a copy of the session if its version matches the stored one.
func (m *MemorySessionStore) Put(_ context.Context, session *domain.Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored int64
	if rec, exists := m.sessions[session.ID]; exists && m.now().Before(rec.expiresAt) {
		stored = rec.session.Version
	}
	if stored != session.Version {
		return fmt.Errorf("%w: session %s at version %d, write based on %d", domain.ErrVersionConflict, session.ID, stored, session.Version)
	}

	session.Version++
	m.sessions[session.ID] = record{
		session:   session.Clone(),
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// Delete removes a session by id.
// This operation is idempotent - deleting a non-existent session does not return an error.
func (m *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Ping always succeeds for the in-process store
func (m *MemorySessionStore) Ping(_ context.Context) error {
	return nil
}

// Increment bumps a fixed-window counter
func (m *MemorySessionStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c := m.counters[key]
	if !now.Before(c.expiresAt) {
		c = counter{expiresAt: now.Add(window)}
	}
	c.count++
	m.counters[key] = c
	return c.count, nil
}

// Len returns the number of live sessions
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := m.now()
	for _, rec := range m.sessions {
		if now.Before(rec.expiresAt) {
			n++
		}
	}
	return n
}
