package domain

import "time"

// ExtractionRequest is the input to the extraction capability
type ExtractionRequest struct {
	Message string
	History []Turn
	Today   time.Time
	// Strict asks the capability for schema-only output after a malformed reply
	Strict bool
}

// Extraction holds the structured fields returned by the extraction capability.
// Nil or empty fields were not mentioned by the user.
type Extraction struct {
	Origin        string
	Destination   string
	DepartureDate *time.Time
	ReturnDate    *time.Time
	Passengers    *int
	MaxPrice      *float64
	PreferDirect  *bool
	Confidence    float64
	// Failed is set when the capability could not be reached or kept returning malformed output
	Failed bool
}

// FailedExtraction is the fail-closed result used when retries are exhausted
func FailedExtraction() *Extraction {
	return &Extraction{Confidence: 0, Failed: true}
}
