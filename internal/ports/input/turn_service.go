package input

import (
	"context"

	"flight-assistant/internal/domain"
)

// TurnService interface - Input port (use case)
// Processes one inbound user message against its session and returns the assistant reply.
type TurnService interface {
	// HandleTurn runs a single conversational turn. Recoverable faults are reported inside
	// the response; a returned error means the turn could not be processed at all.
	HandleTurn(ctx context.Context, request domain.TurnRequest) (*domain.TurnResponse, error)

	// ResetSession discards a session so the next message starts fresh.
	ResetSession(ctx context.Context, sessionID string) error
}

// HealthService interface - Input port for readiness checks
type HealthService interface {
	// Ready returns per-dependency status and whether the service can take traffic
	Ready(ctx context.Context) (map[string]string, bool)
}
