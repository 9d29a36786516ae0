package sentry

import (
	"strings"
	"time"

	"flight-assistant/configs"
	"flight-assistant/internal/ports/output"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure Reporter implements ErrorReporter interface
var _ output.ErrorReporter = (*Reporter)(nil)

const filtered = "[Filtered]"

var sensitiveHeaders = []string{"authorization", "cookie", "x-api-key", "x-line-signature"}

// Reporter struct - Sends unexpected faults to Sentry. Without a DSN it only logs.
type Reporter struct {
	enabled bool
}

// NewReporter initializes the Sentry SDK when a DSN is configured
func NewReporter(config configs.Sentry, environment string) (*Reporter, error) {
	if config.DSN == "" {
		logrus.Warn("Sentry DSN not configured - error tracking disabled")
		return &Reporter{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      environment,
		Release:          config.Release,
		TracesSampleRate: config.TracesSampleRate,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		BeforeSend:       ScrubEvent,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"environment": environment,
		"release":     config.Release,
	}).Info("Sentry initialized")

	return &Reporter{enabled: true}, nil
}

// CaptureException reports err with the given tags
func (r *Reporter) CaptureException(err error, tags map[string]string) {
	logrus.WithError(err).WithField("tags", tags).Error("Unexpected fault")
	if !r.enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events before shutdown
func (r *Reporter) Flush(timeout time.Duration) {
	if r.enabled {
		sentry.Flush(timeout)
	}
}

// ScrubEvent removes credentials and message bodies from events and drops
// redis connection noise.
func ScrubEvent(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && hint.OriginalException != nil {
		msg := strings.ToLower(hint.OriginalException.Error())
		if strings.Contains(msg, "redis") && strings.Contains(msg, "connection") {
			return nil
		}
	}

	if event.Request != nil {
		for name := range event.Request.Headers {
			for _, sensitive := range sensitiveHeaders {
				if strings.EqualFold(name, sensitive) {
					event.Request.Headers[name] = filtered
				}
			}
		}
		if event.Request.Cookies != "" {
			event.Request.Cookies = filtered
		}
		if event.Request.Data != "" {
			event.Request.Data = filtered
		}
	}
	return event
}
