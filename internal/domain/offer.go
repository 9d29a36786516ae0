package domain

import "time"

// Leg describes one direction of an itinerary
type Leg struct {
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureAt   time.Time `json:"departure_at"`
	ArrivalAt     time.Time `json:"arrival_at"`
	FlightNumbers []string  `json:"flight_numbers,omitempty"`
	Stops         int       `json:"stops"`
}

// Offer is one flight search result. Offers are values; ranking copies them
// and only sets RelevanceScore on the copy.
type Offer struct {
	ID               string  `json:"id"`
	Airline          string  `json:"airline"`
	Price            float64 `json:"price"`
	Currency         string  `json:"currency"`
	DurationMinutes  int     `json:"duration_minutes"`
	Stops            int     `json:"stops"`
	Outbound         Leg     `json:"outbound"`
	Return           *Leg    `json:"return,omitempty"`
	BookingReference string  `json:"booking_reference"`
	RelevanceScore   float64 `json:"relevance_score"`
}

// IsDirect reports whether the offer has no stops
func (o Offer) IsDirect() bool {
	return o.Stops == 0
}

// SearchResult is the outcome of a (possibly degraded) flight search
type SearchResult struct {
	Offers   []Offer
	Degraded bool
}

// LowestPrice returns the minimum price in offers, or zero when empty
func LowestPrice(offers []Offer) float64 {
	if len(offers) == 0 {
		return 0
	}
	lowest := offers[0].Price
	for _, o := range offers[1:] {
		if o.Price < lowest {
			lowest = o.Price
		}
	}
	return lowest
}
