package http

import (
	"net/http"
	"time"

	"flight-assistant/internal/domain"
)

var (
	// Success response
	Success = Status{Code: http.StatusOK, Message: []string{"Success"}}
	// BadRequest response
	BadRequest = Status{Code: http.StatusBadRequest, Message: []string{"Sorry, Not responding because of incorrect syntax"}}
	// UnprocessableEntity response
	UnprocessableEntity = Status{Code: http.StatusUnprocessableEntity, Message: []string{"Sorry, The request is missing required fields"}}
	// InternalServerError response
	InternalServerError = Status{Code: http.StatusInternalServerError, Message: []string{domain.TechnicalDifficultyMessage}}
)

// ResponseBody struct - Generic HTTP response wrapper
type ResponseBody struct {
	Status Status      `json:"status,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Status struct
type Status struct {
	Code    int      `json:"code,omitempty"`
	Message []string `json:"message,omitempty"`
}

type (
	// ChatResponse struct - HTTP response DTO for one conversational turn
	ChatResponse struct {
		SessionID     string                 `json:"session_id"`
		Type          string                 `json:"type"`
		Response      string                 `json:"response"`
		Offers        []OfferResponse        `json:"offers,omitempty"`
		Clarification *ClarificationResponse `json:"clarification,omitempty"`
		Error         *ErrorResponse         `json:"error,omitempty"`
		Degraded      bool                   `json:"degraded"`
		Assumptions   []string               `json:"assumptions,omitempty"`
	}

	// OfferResponse struct - HTTP response DTO for a ranked offer
	OfferResponse struct {
		ID               string       `json:"id"`
		Airline          string       `json:"airline"`
		Price            float64      `json:"price"`
		Currency         string       `json:"currency"`
		DurationMinutes  int          `json:"duration_minutes"`
		Stops            int          `json:"stops"`
		Outbound         LegResponse  `json:"outbound"`
		Return           *LegResponse `json:"return,omitempty"`
		BookingReference string       `json:"booking_reference"`
		RelevanceScore   float64      `json:"relevance_score"`
	}

	// LegResponse struct - HTTP response DTO for one direction of an offer
	LegResponse struct {
		Origin        string    `json:"origin"`
		Destination   string    `json:"destination"`
		DepartureAt   time.Time `json:"departure_at"`
		ArrivalAt     time.Time `json:"arrival_at"`
		FlightNumbers []string  `json:"flight_numbers,omitempty"`
		Stops         int       `json:"stops"`
	}

	// ClarificationResponse struct - HTTP response DTO for a clarification question
	ClarificationResponse struct {
		Field       string   `json:"field,omitempty"`
		Question    string   `json:"question"`
		Suggestions []string `json:"suggestions,omitempty"`
	}

	// ErrorResponse struct - HTTP response DTO for a rejected turn
	ErrorResponse struct {
		Code        string `json:"code"`
		UserMessage string `json:"user_message"`
	}

	// HealthResponse struct - HTTP response DTO for health endpoints
	HealthResponse struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}
)

// toChatResponse converts the domain turn response into the wire format
func toChatResponse(resp *domain.TurnResponse) ChatResponse {
	out := ChatResponse{
		SessionID:   resp.SessionID,
		Type:        string(resp.Type),
		Response:    resp.AssistantText,
		Degraded:    resp.Degraded,
		Assumptions: resp.Assumptions,
	}
	for _, o := range resp.Offers {
		offer := OfferResponse{
			ID:               o.ID,
			Airline:          o.Airline,
			Price:            o.Price,
			Currency:         o.Currency,
			DurationMinutes:  o.DurationMinutes,
			Stops:            o.Stops,
			Outbound:         toLegResponse(o.Outbound),
			BookingReference: o.BookingReference,
			RelevanceScore:   o.RelevanceScore,
		}
		if o.Return != nil {
			leg := toLegResponse(*o.Return)
			offer.Return = &leg
		}
		out.Offers = append(out.Offers, offer)
	}
	if resp.Clarification != nil {
		out.Clarification = &ClarificationResponse{
			Field:       resp.Clarification.Field,
			Question:    resp.Clarification.Question,
			Suggestions: resp.Clarification.Suggestions,
		}
	}
	if resp.Error != nil {
		out.Error = &ErrorResponse{
			Code:        string(resp.Error.Code),
			UserMessage: resp.Error.UserMessage,
		}
	}
	return out
}

func toLegResponse(l domain.Leg) LegResponse {
	return LegResponse{
		Origin:        l.Origin,
		Destination:   l.Destination,
		DepartureAt:   l.DepartureAt,
		ArrivalAt:     l.ArrivalAt,
		FlightNumbers: l.FlightNumbers,
		Stops:         l.Stops,
	}
}
