package domain

import "time"

// TurnRole identifies who produced a turn
type TurnRole string

const (
	// TurnRoleSystem - System instructions or synthesized summaries
	TurnRoleSystem TurnRole = "system"
	// TurnRoleUser - Inbound user message
	TurnRoleUser TurnRole = "user"
	// TurnRoleAssistant - Assistant reply
	TurnRoleAssistant TurnRole = "assistant"
)

// TurnKindSummary marks a system turn synthesized by pruning
const TurnKindSummary = "summary"

// TurnMetadata carries per-turn diagnostics
type TurnMetadata struct {
	Kind       string    `json:"kind,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Tools      []string  `json:"tools,omitempty"`
	ErrorCode  ErrorKind `json:"error_code,omitempty"`
	Truncated  bool      `json:"truncated,omitempty"`
}

// Turn represents one message in the conversation
type Turn struct {
	Role      TurnRole     `json:"role"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	Metadata  TurnMetadata `json:"metadata"`
}

// IsSummary reports whether the turn was synthesized by pruning
func (t Turn) IsSummary() bool {
	return t.Role == TurnRoleSystem && t.Metadata.Kind == TurnKindSummary
}

// Session represents the conversational state of one traveller.
// It is serialized as a single record keyed by ID.
type Session struct {
	ID                  string    `json:"id"`
	History             []Turn    `json:"history"`
	Criteria            Criteria  `json:"criteria"`
	LastResults         []Offer   `json:"last_results"`
	LastLowestPrice     float64   `json:"last_lowest_price"`
	CreatedAt           time.Time `json:"created_at"`
	LastActiveAt        time.Time `json:"last_active_at"`
	MessageCount        int       `json:"message_count"`
	ClarificationRounds int       `json:"clarification_rounds"`
	// SuggestedMaxPrice is the relaxed ceiling offered after a cheaper refinement found nothing
	SuggestedMaxPrice *float64 `json:"suggested_max_price,omitempty"`
	Version           int64    `json:"version"`
}

// NewSession creates an empty session
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		History:      make([]Turn, 0),
		LastResults:  make([]Offer, 0),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// IsExpired checks if the session has been inactive for longer than ttl
func (s *Session) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActiveAt) > ttl
}

// SetResults replaces the last result set and its lowest price
func (s *Session) SetResults(offers []Offer) {
	s.LastResults = append(make([]Offer, 0, len(offers)), offers...)
	s.LastLowestPrice = LowestPrice(offers)
}

// GetHistory returns a copy of the conversation history
func (s *Session) GetHistory() []Turn {
	if len(s.History) == 0 {
		return []Turn{}
	}

	// Return a copy to prevent external modification
	history := make([]Turn, len(s.History))
	copy(history, s.History)
	return history
}

// RecentHistory returns a copy of the last n turns
func (s *Session) RecentHistory(n int) []Turn {
	history := s.GetHistory()
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}

// Clone returns a deep copy so a turn can mutate the session without
// exposing partial state to the store.
func (s *Session) Clone() *Session {
	c := *s
	c.History = s.GetHistory()
	c.LastResults = append(make([]Offer, 0, len(s.LastResults)), s.LastResults...)
	c.Criteria = s.Criteria.clone()
	if s.SuggestedMaxPrice != nil {
		p := *s.SuggestedMaxPrice
		c.SuggestedMaxPrice = &p
	}
	return &c
}

func (c Criteria) clone() Criteria {
	out := c
	if c.DepartureDate != nil {
		d := *c.DepartureDate
		out.DepartureDate = &d
	}
	if c.ReturnDate != nil {
		d := *c.ReturnDate
		out.ReturnDate = &d
	}
	if c.Passengers != nil {
		p := *c.Passengers
		out.Passengers = &p
	}
	if c.MaxPrice != nil {
		p := *c.MaxPrice
		out.MaxPrice = &p
	}
	return out
}
