package http

import (
	"context"
	"sync"

	"flight-assistant/internal/domain"
)

// MockTurnService is a mock implementation of input.TurnService
type MockTurnService struct {
	HandleTurnFunc   func(ctx context.Context, request domain.TurnRequest) (*domain.TurnResponse, error)
	ResetSessionFunc func(ctx context.Context, sessionID string) error

	mu       sync.Mutex
	Requests []domain.TurnRequest
	Resets   []string
}

func (m *MockTurnService) HandleTurn(ctx context.Context, request domain.TurnRequest) (*domain.TurnResponse, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, request)
	m.mu.Unlock()
	if m.HandleTurnFunc != nil {
		return m.HandleTurnFunc(ctx, request)
	}
	return &domain.TurnResponse{
		SessionID:     "session-1",
		Type:          domain.ResponseTypeClarification,
		AssistantText: "Where are you flying from?",
		Clarification: &domain.Clarification{Field: domain.FieldOrigin, Question: "Where are you flying from?"},
	}, nil
}

func (m *MockTurnService) ResetSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	m.Resets = append(m.Resets, sessionID)
	m.mu.Unlock()
	if m.ResetSessionFunc != nil {
		return m.ResetSessionFunc(ctx, sessionID)
	}
	return nil
}

// MockHealthService is a mock implementation of input.HealthService
type MockHealthService struct {
	Checks    map[string]string
	Unhealthy bool
}

func (m *MockHealthService) Ready(_ context.Context) (map[string]string, bool) {
	return m.Checks, !m.Unhealthy
}

// MockLineWebhookService is a mock implementation of input.LineWebhookService
type MockLineWebhookService struct {
	HandleWebhookFunc func(ctx context.Context, request domain.LineWebhookRequest) error
	Requests          []domain.LineWebhookRequest
}

func (m *MockLineWebhookService) HandleWebhook(ctx context.Context, request domain.LineWebhookRequest) error {
	m.Requests = append(m.Requests, request)
	if m.HandleWebhookFunc != nil {
		return m.HandleWebhookFunc(ctx, request)
	}
	return nil
}
