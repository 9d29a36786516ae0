// Package resilient wraps the external capabilities with timeouts, retries,
// circuit breakers and fallbacks so callers never see their failures.
package resilient

import (
	"errors"
	"time"

	"flight-assistant/configs"
	"flight-assistant/internal/domain"
	"flight-assistant/pkg/resilience"
)

// IsTransient classifies capability errors for the retry policy.
// Malformed output and credential or request errors are never retried.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrMalformedExtraction),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidRequest):
		return false
	case domain.IsTransient(err):
		return true
	}
	return resilience.IsTransientNetworkError(err)
}

// ExtractionPolicy builds the retry policy for the extraction capability
func ExtractionPolicy(config configs.Extraction) resilience.Policy {
	return policy("extraction", config.MaxAttempts, config.BaseDelayMs, config.Timeout, 30)
}

// SearchPolicy builds the retry policy for the flight-search capability
func SearchPolicy(config configs.FlightSearch) resilience.Policy {
	return policy("flight_search", config.MaxAttempts, config.BaseDelayMs, config.Timeout, 10)
}

// NewBreaker builds a circuit breaker for a named dependency
func NewBreaker(name string, config configs.Circuit) *resilience.Breaker {
	return resilience.NewBreaker(name, config.FailureThreshold, time.Duration(config.Cooldown)*time.Second)
}

func policy(name string, attempts, baseDelayMs, timeoutSeconds, defaultTimeout int) resilience.Policy {
	if attempts <= 0 {
		attempts = 3
	}
	if baseDelayMs <= 0 {
		baseDelayMs = 500
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeout
	}
	return resilience.Policy{
		Name:        name,
		MaxAttempts: attempts,
		BaseDelay:   time.Duration(baseDelayMs) * time.Millisecond,
		MaxDelay:    8 * time.Second,
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		Retryable:   IsTransient,
	}
}
