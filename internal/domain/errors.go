package domain

import "errors"

// Store and upstream error types

var (
	// ErrSessionNotFound indicates the session does not exist or its TTL elapsed
	ErrSessionNotFound = errors.New("session not found")

	// ErrVersionConflict indicates the session was written by another turn since it was read
	ErrVersionConflict = errors.New("session version conflict")

	// ErrUpstreamUnavailable indicates an external capability is unavailable (5xx, connection failure)
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")

	// ErrUpstreamTimeout indicates a request to an external capability timed out
	ErrUpstreamTimeout = errors.New("upstream request timeout")

	// ErrUpstreamRateLimited indicates the external capability signalled a rate limit (429)
	ErrUpstreamRateLimited = errors.New("upstream rate limited")

	// ErrInvalidRequest indicates an invalid request was made (4xx client errors)
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized indicates the external capability rejected our credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedExtraction indicates the extraction capability returned output outside the schema
	ErrMalformedExtraction = errors.New("malformed extraction output")
)

// ErrorKind classifies a turn outcome for logging and for the error payload
// returned to the transport layer.
type ErrorKind string

const (
	KindScopeViolation      ErrorKind = "SCOPE_VIOLATION"
	KindValidationError     ErrorKind = "VALIDATION_ERROR"
	KindExtractionAmbiguous ErrorKind = "EXTRACTION_AMBIGUOUS"
	KindExtractionFailed    ErrorKind = "EXTRACTION_FAILED"
	KindSearchUnavailable   ErrorKind = "SEARCH_UNAVAILABLE"
	KindSearchEmpty         ErrorKind = "SEARCH_EMPTY"
	KindRefinementNoMatch   ErrorKind = "REFINEMENT_NO_MATCH"
	KindSessionExpired      ErrorKind = "SESSION_EXPIRED"
	KindRateLimited         ErrorKind = "RATE_LIMITED"
	KindInternal            ErrorKind = "INTERNAL_ERROR"
)

// TechnicalDifficultyMessage is the only text a transport may show for a fatal fault.
const TechnicalDifficultyMessage = "Sorry, I'm having technical difficulties right now. Please try again in a moment."

// ErrorForStatus maps an upstream HTTP status code to a sentinel
func ErrorForStatus(code int) error {
	switch {
	case code == 429:
		return ErrUpstreamRateLimited
	case code == 401 || code == 403:
		return ErrUnauthorized
	case code == 408 || code == 504:
		return ErrUpstreamTimeout
	case code >= 500:
		return ErrUpstreamUnavailable
	default:
		return ErrInvalidRequest
	}
}

// IsTransient reports whether err is a retryable upstream sentinel
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrUpstreamTimeout) ||
		errors.Is(err, ErrUpstreamRateLimited)
}
