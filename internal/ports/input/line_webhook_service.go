package input

import (
	"context"

	"flight-assistant/internal/domain"
)

// LineWebhookService interface - Input port (use case)
// Defines what the application can do with LINE webhook events
type LineWebhookService interface {
	// HandleWebhook routes incoming LINE events into the conversation engine
	HandleWebhook(ctx context.Context, request domain.LineWebhookRequest) error
}
