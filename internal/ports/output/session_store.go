package output

import (
	"context"
	"time"

	"flight-assistant/internal/domain"
)

// SessionStore interface - Output port
// Durable keyed storage for conversation sessions. Implementations must be safe for
// concurrent access and must commit a session atomically.
type SessionStore interface {
	// Get returns the stored session or domain.ErrSessionNotFound.
	// Expired records are removed lazily and reported as not found.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Put writes the whole session. The stored Version must equal session.Version,
	// otherwise domain.ErrVersionConflict is returned and nothing is written.
	// On success session.Version is incremented and the record lives for ttl.
	Put(ctx context.Context, session *domain.Session, ttl time.Duration) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
}

// RateCounter interface - Output port
// Fixed-window counters used for abuse limits.
type RateCounter interface {
	// Increment bumps key and returns the count within the current window
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
