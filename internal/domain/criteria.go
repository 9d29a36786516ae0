package domain

import (
	"fmt"
	"strings"
	"time"
)

// Field names used in clarifications, violations and summaries.
const (
	FieldOrigin        = "origin"
	FieldDestination   = "destination"
	FieldDepartureDate = "departure_date"
	FieldReturnDate    = "return_date"
	FieldPassengers    = "passengers"
	FieldMaxPrice      = "max_price"
)

// RequiredFields lists the criteria that must be present before a search, in the
// order clarification questions ask for them.
var RequiredFields = []string{FieldOrigin, FieldDestination, FieldDepartureDate, FieldReturnDate}

// Criteria is the cumulative travel intent of a session. Fields fill in across turns.
type Criteria struct {
	Origin        string     `json:"origin,omitempty" validate:"omitempty,len=3,alpha,uppercase"`
	Destination   string     `json:"destination,omitempty" validate:"omitempty,len=3,alpha,uppercase"`
	DepartureDate *time.Time `json:"departure_date,omitempty"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Passengers    *int       `json:"passengers,omitempty" validate:"omitempty,min=1,max=9"`
	MaxPrice      *float64   `json:"max_price,omitempty" validate:"omitempty,gt=0"`
	PreferDirect  bool       `json:"prefer_direct"`
}

// Merge returns a copy of c with every non-null extracted value applied.
// Absent values never clear a filled field.
func (c Criteria) Merge(e Extraction) Criteria {
	merged := c
	if v := strings.ToUpper(strings.TrimSpace(e.Origin)); v != "" {
		merged.Origin = v
	}
	if v := strings.ToUpper(strings.TrimSpace(e.Destination)); v != "" {
		merged.Destination = v
	}
	if e.DepartureDate != nil {
		d := *e.DepartureDate
		merged.DepartureDate = &d
	}
	if e.ReturnDate != nil {
		d := *e.ReturnDate
		merged.ReturnDate = &d
	}
	if e.Passengers != nil {
		p := *e.Passengers
		merged.Passengers = &p
	}
	if e.MaxPrice != nil {
		p := *e.MaxPrice
		merged.MaxPrice = &p
	}
	if e.PreferDirect != nil {
		merged.PreferDirect = *e.PreferDirect
	}
	return merged
}

// Revert restores a single field of c from prev.
func (c Criteria) Revert(field string, prev Criteria) Criteria {
	switch field {
	case FieldOrigin:
		c.Origin = prev.Origin
	case FieldDestination:
		c.Destination = prev.Destination
	case FieldDepartureDate:
		c.DepartureDate = prev.DepartureDate
	case FieldReturnDate:
		c.ReturnDate = prev.ReturnDate
	case FieldPassengers:
		c.Passengers = prev.Passengers
	case FieldMaxPrice:
		c.MaxPrice = prev.MaxPrice
	}
	return c
}

// Missing returns the required fields that are still empty.
func (c Criteria) Missing() []string {
	var missing []string
	for _, f := range RequiredFields {
		switch f {
		case FieldOrigin:
			if c.Origin == "" {
				missing = append(missing, f)
			}
		case FieldDestination:
			if c.Destination == "" {
				missing = append(missing, f)
			}
		case FieldDepartureDate:
			if c.DepartureDate == nil {
				missing = append(missing, f)
			}
		case FieldReturnDate:
			if c.ReturnDate == nil {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

// IsComplete reports whether a search can be issued.
func (c Criteria) IsComplete() bool {
	return len(c.Missing()) == 0
}

// PassengerCount returns the passenger count, defaulting to one.
func (c Criteria) PassengerCount() int {
	if c.Passengers == nil {
		return 1
	}
	return *c.Passengers
}

// Summary renders the criteria as a single line for summary turns and confirmations.
func (c Criteria) Summary() string {
	parts := make([]string, 0, 6)
	if c.Origin != "" || c.Destination != "" {
		parts = append(parts, fmt.Sprintf("%s → %s", orUnknown(c.Origin), orUnknown(c.Destination)))
	}
	if c.DepartureDate != nil {
		parts = append(parts, "depart "+c.DepartureDate.Format(OnlyDate))
	}
	if c.ReturnDate != nil {
		parts = append(parts, "return "+c.ReturnDate.Format(OnlyDate))
	}
	if c.Passengers != nil {
		parts = append(parts, fmt.Sprintf("%d passenger(s)", *c.Passengers))
	}
	if c.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("under $%.0f", *c.MaxPrice))
	}
	if c.PreferDirect {
		parts = append(parts, "direct only")
	}
	if len(parts) == 0 {
		return "no travel details yet"
	}
	return strings.Join(parts, ", ")
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
