package sentry

import (
	"errors"
	"testing"

	"flight-assistant/configs"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubEvent_FiltersSensitiveRequestData(t *testing.T) {
	event := &sentry.Event{Request: &sentry.Request{
		Headers: map[string]string{
			"Authorization": "Bearer secret",
			"X-Api-Key":     "k",
			"Content-Type":  "application/json",
		},
		Cookies: "session=abc",
		Data:    `{"message":"my passport number is ..."}`,
	}}

	got := ScrubEvent(event, &sentry.EventHint{})

	require.NotNil(t, got)
	assert.Equal(t, filtered, got.Request.Headers["Authorization"])
	assert.Equal(t, filtered, got.Request.Headers["X-Api-Key"])
	assert.Equal(t, "application/json", got.Request.Headers["Content-Type"])
	assert.Equal(t, filtered, got.Request.Cookies)
	assert.Equal(t, filtered, got.Request.Data)
}

func TestScrubEvent_DropsRedisConnectionNoise(t *testing.T) {
	hint := &sentry.EventHint{OriginalException: errors.New("redis: connection pool timeout")}

	assert.Nil(t, ScrubEvent(&sentry.Event{}, hint))
	assert.NotNil(t, ScrubEvent(&sentry.Event{}, &sentry.EventHint{OriginalException: errors.New("boom")}))
}

func TestNewReporterWithoutDSNIsDisabled(t *testing.T) {
	r, err := NewReporter(configs.Sentry{}, "test")

	require.NoError(t, err)
	assert.False(t, r.enabled)
	r.CaptureException(errors.New("boom"), map[string]string{"session_id": "s"})
}
