package http

type (
	// ChatRequest struct - HTTP request DTO for one conversational turn
	ChatRequest struct {
		Message   string  `json:"message" validate:"required"`
		SessionID *string `json:"session_id" validate:"omitempty,max=128"`
	}
)
