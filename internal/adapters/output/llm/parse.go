package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flight-assistant/internal/domain"
)

type extractionPayload struct {
	Origin        *string  `json:"origin"`
	Destination   *string  `json:"destination"`
	DepartureDate *string  `json:"departure_date"`
	ReturnDate    *string  `json:"return_date"`
	Passengers    *int     `json:"passengers"`
	MaxPrice      *float64 `json:"max_price"`
	PreferDirect  *bool    `json:"prefer_direct"`
	Confidence    *float64 `json:"confidence"`
}

// ParseExtraction decodes model output into an Extraction. Anything outside the
// contract is reported as domain.ErrMalformedExtraction.
func ParseExtraction(raw string) (*domain.Extraction, error) {
	body := stripFences(raw)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in output", domain.ErrMalformedExtraction)
	}

	var p extractionPayload
	if err := json.Unmarshal([]byte(body[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedExtraction, err)
	}
	if p.Confidence == nil {
		return nil, fmt.Errorf("%w: missing confidence", domain.ErrMalformedExtraction)
	}
	if *p.Confidence < 0 || *p.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", domain.ErrMalformedExtraction, *p.Confidence)
	}

	e := &domain.Extraction{
		Passengers:   p.Passengers,
		MaxPrice:     p.MaxPrice,
		PreferDirect: p.PreferDirect,
		Confidence:   *p.Confidence,
	}
	if p.Origin != nil {
		e.Origin = strings.ToUpper(strings.TrimSpace(*p.Origin))
	}
	if p.Destination != nil {
		e.Destination = strings.ToUpper(strings.TrimSpace(*p.Destination))
	}

	var err error
	if e.DepartureDate, err = parseOptionalDate(p.DepartureDate); err != nil {
		return nil, err
	}
	if e.ReturnDate, err = parseOptionalDate(p.ReturnDate); err != nil {
		return nil, err
	}
	return e, nil
}

func parseOptionalDate(v *string) (*time.Time, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(strings.TrimSpace(*v))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedExtraction, err)
	}
	return t, nil
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
