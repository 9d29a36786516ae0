package application

import (
	"context"
	"time"

	"flight-assistant/internal/ports/input"
	"flight-assistant/internal/ports/output"
	"flight-assistant/pkg/resilience"
)

// Compile-time check to ensure HealthService implements the input port
var _ input.HealthService = (*HealthService)(nil)

const pingTimeout = 2 * time.Second

// Pinger is a dependency that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService struct - Readiness checks for the HTTP health endpoints
type HealthService struct {
	store    output.SessionStore
	airports Pinger
	breakers []*resilience.Breaker
}

// NewHealthService func - airports may be nil when the static directory is used
func NewHealthService(store output.SessionStore, airports Pinger, breakers ...*resilience.Breaker) *HealthService {
	return &HealthService{
		store:    store,
		airports: airports,
		breakers: breakers,
	}
}

// Ready reports per-dependency status. Only the session store gates readiness;
// the capabilities degrade instead of failing.
func (s *HealthService) Ready(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	checks := make(map[string]string, 2+len(s.breakers))
	ready := true

	if err := s.store.Ping(ctx); err != nil {
		checks["session_store"] = "disconnected"
		ready = false
	} else {
		checks["session_store"] = "connected"
	}

	switch {
	case s.airports == nil:
		checks["airports"] = "static"
	case s.airports.Ping(ctx) != nil:
		checks["airports"] = "disconnected"
	default:
		checks["airports"] = "connected"
	}

	for _, b := range s.breakers {
		checks["circuit_"+b.Name()] = b.State().String()
	}

	return checks, ready
}
