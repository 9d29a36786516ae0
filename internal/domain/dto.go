package domain

// DTOs (Data Transfer Objects) - Domain layer request/response structures

// ResponseType names the single kind of payload a turn produced
type ResponseType string

const (
	// ResponseTypeResults - ranked offers (possibly empty or degraded)
	ResponseTypeResults ResponseType = "results"
	// ResponseTypeClarification - one targeted question
	ResponseTypeClarification ResponseType = "clarification"
	// ResponseTypeRefinement - refinement outcome, including no match
	ResponseTypeRefinement ResponseType = "refinement"
	// ResponseTypeRejection - scope, validation or rate-limit rejection
	ResponseTypeRejection ResponseType = "rejection"
)

type (
	// TurnRequest struct - Domain inbound turn
	TurnRequest struct {
		SessionID string
		Message   string
		// ClientOrigin identifies the caller for session-creation limits (IP, channel user)
		ClientOrigin string
	}

	// Clarification struct - A single question with suggested answers
	Clarification struct {
		Field       string   `json:"field,omitempty"`
		Question    string   `json:"question"`
		Suggestions []string `json:"suggestions,omitempty"`
	}

	// TurnError struct - User-presentable rejection
	TurnError struct {
		Code        ErrorKind `json:"code"`
		UserMessage string    `json:"user_message"`
	}

	// TurnResponse struct - Domain outbound turn, exactly one of Offers (results or
	// refinement), Clarification or Error is meaningful according to Type
	TurnResponse struct {
		SessionID     string
		Type          ResponseType
		AssistantText string
		Offers        []Offer
		Clarification *Clarification
		Error         *TurnError
		Degraded      bool
		Assumptions   []string
		// Kind is the internal outcome code, for logging only
		Kind ErrorKind
	}

	// LineWebhookRequest struct - Domain LINE webhook request DTO
	LineWebhookRequest struct {
		Events []LineWebhookEvent
	}

	// LineReplyMessageRequest struct - Domain LINE reply message request DTO
	LineReplyMessageRequest struct {
		ReplyToken string
		Messages   []LineOutgoingMessage
	}

	// LinePushMessageRequest struct - Domain LINE push message request DTO
	LinePushMessageRequest struct {
		To       string
		Messages []LineOutgoingMessage
	}

	// LineOutgoingMessage struct - Domain LINE outgoing message DTO
	LineOutgoingMessage struct {
		Type LineMessageType
		Text string
		// QuickReplies become tappable suggestion buttons
		QuickReplies []string
	}

	// LineMessageResponse struct - Domain LINE API response DTO
	LineMessageResponse struct {
		Status  string
		Message string
	}
)
