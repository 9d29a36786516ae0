package resilience

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrExhausted wraps the last error once every attempt has failed
var ErrExhausted = errors.New("retries exhausted")

// Policy struct - Retry policy for one external dependency
type Policy struct {
	Name        string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Timeout bounds each attempt independently of the caller's deadline
	Timeout time.Duration
	// Retryable classifies errors. Nil means IsTransientNetworkError.
	Retryable func(error) bool
	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns the random extra added to a backoff delay. Nil means up to half the delay.
	Jitter func(d time.Duration) time.Duration
}

// Backoff returns the delay before retry number attempt (0-based): base * 2^attempt, capped
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

// Call runs op under the policy. Transient failures are retried with exponential backoff;
// anything else returns immediately. A non-nil breaker is consulted before every attempt.
func Call[T any](ctx context.Context, p Policy, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransientNetworkError
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if b != nil {
			if err := b.Allow(); err != nil {
				if lastErr != nil {
					return zero, fmt.Errorf("%w: %w", err, lastErr)
				}
				return zero, err
			}
		}

		result, err := runAttempt(ctx, p.Timeout, op)
		if err == nil {
			if b != nil {
				b.Success()
			}
			return result, nil
		}

		// Caller gave up; this says nothing about the dependency
		if ctx.Err() != nil {
			if b != nil {
				b.Release()
			}
			return zero, ctx.Err()
		}

		if !retryable(err) {
			// The dependency answered, so the circuit stays healthy
			if b != nil {
				b.Success()
			}
			return zero, err
		}

		if b != nil {
			b.Failure()
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := p.Backoff(attempt)
		if p.Jitter != nil {
			delay += p.Jitter(delay)
		} else if delay > 1 {
			delay += time.Duration(rand.Int63n(int64(delay) / 2))
		}
		logrus.Warnf("%s attempt %d/%d failed: %v, retrying in %v", p.Name, attempt+1, attempts, err, delay)

		sleep := p.Sleep
		if sleep == nil {
			sleep = sleepContext
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// IsTransientNetworkError reports timeouts, connection failures and DNS errors
func IsTransientNetworkError(err error) bool {
	if err == nil {
		return false
	}

	// Check for network-related errors
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Check for connection refused or other network issues
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Check error message for common transient patterns
	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"eof",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
