package output

import (
	"context"

	"flight-assistant/internal/domain"
)

// Extractor interface - Output port
// Turns a free-text message plus recent history into structured travel fields.
type Extractor interface {
	// Extract returns the fields found in the message. Output that does not match the
	// expected schema must be reported as domain.ErrMalformedExtraction.
	Extract(ctx context.Context, request domain.ExtractionRequest) (*domain.Extraction, error)
}

// FlightSearcher interface - Output port
// Queries a flight inventory for the given criteria. Zero offers is a valid answer.
type FlightSearcher interface {
	Search(ctx context.Context, criteria domain.Criteria) ([]domain.Offer, error)
}

// AirportDirectory interface - Output port
// Source of IATA codes the guardrail accepts.
type AirportDirectory interface {
	KnownAirportCodes(ctx context.Context) ([]string, error)
}

// ErrorReporter interface - Output port
// Receives unexpected faults for out-of-band alerting.
type ErrorReporter interface {
	CaptureException(err error, tags map[string]string)
}

// GuardedExtractor interface - Extractor behind timeouts, retries and a circuit breaker.
// It never fails: exhausted retries yield a zero-confidence extraction.
type GuardedExtractor interface {
	ExtractFields(ctx context.Context, request domain.ExtractionRequest) *domain.Extraction
}

// GuardedSearcher interface - FlightSearcher behind timeouts, retries and a circuit breaker.
// It never fails: exhausted retries yield fallback offers flagged as degraded.
type GuardedSearcher interface {
	SearchOffers(ctx context.Context, criteria domain.Criteria) domain.SearchResult
}
