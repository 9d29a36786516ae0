package resilient

import (
	"context"
	"errors"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"
	"flight-assistant/pkg/resilience"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure Extractor implements GuardedExtractor interface
var _ output.GuardedExtractor = (*Extractor)(nil)

// Extractor struct - Fail-closed wrapper around an extraction adapter
type Extractor struct {
	inner   output.Extractor
	policy  resilience.Policy
	breaker *resilience.Breaker
}

// NewExtractor creates the wrapper
func NewExtractor(inner output.Extractor, policy resilience.Policy, breaker *resilience.Breaker) *Extractor {
	return &Extractor{inner: inner, policy: policy, breaker: breaker}
}

// ExtractFields returns the extraction or, once every attempt has failed, a zero-confidence
// result. Malformed output gets one more attempt with the strict instruction.
func (e *Extractor) ExtractFields(ctx context.Context, request domain.ExtractionRequest) *domain.Extraction {
	extraction, err := e.call(ctx, request)
	if errors.Is(err, domain.ErrMalformedExtraction) && !request.Strict {
		logrus.Warnf("Extraction output malformed, retrying with strict instruction: %v", err)
		request.Strict = true
		extraction, err = e.call(ctx, request)
	}
	if err != nil {
		logrus.WithError(err).Warn("Extraction failed, continuing with zero confidence")
		return domain.FailedExtraction()
	}
	return extraction
}

// Breaker exposes the circuit for health reporting
func (e *Extractor) Breaker() *resilience.Breaker {
	return e.breaker
}

func (e *Extractor) call(ctx context.Context, request domain.ExtractionRequest) (*domain.Extraction, error) {
	return resilience.Call(ctx, e.policy, e.breaker, func(ctx context.Context) (*domain.Extraction, error) {
		return e.inner.Extract(ctx, request)
	})
}
