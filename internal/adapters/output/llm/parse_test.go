package llm

import (
	"testing"
	"time"

	"flight-assistant/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtraction_FullObject(t *testing.T) {
	raw := `{"origin":"sfo","destination":"CDG","departure_date":"2026-12-01","return_date":"2026-12-08",
"passengers":2,"max_price":null,"prefer_direct":true,"confidence":0.92}`

	e, err := ParseExtraction(raw)

	require.NoError(t, err)
	assert.Equal(t, "SFO", e.Origin)
	assert.Equal(t, "CDG", e.Destination)
	require.NotNil(t, e.DepartureDate)
	assert.True(t, e.DepartureDate.Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, e.Passengers)
	assert.Equal(t, 2, *e.Passengers)
	assert.Nil(t, e.MaxPrice)
	require.NotNil(t, e.PreferDirect)
	assert.True(t, *e.PreferDirect)
	assert.InDelta(t, 0.92, e.Confidence, 1e-9)
	assert.False(t, e.Failed)
}

func TestParseExtraction_StripsFencesAndProse(t *testing.T) {
	raw := "```json\n{\"origin\": null, \"destination\": \"LHR\", \"confidence\": 0.4}\n```"

	e, err := ParseExtraction(raw)

	require.NoError(t, err)
	assert.Empty(t, e.Origin)
	assert.Equal(t, "LHR", e.Destination)

	e, err = ParseExtraction(`Sure! Here you go: {"confidence": 0.1}`)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, e.Confidence, 1e-9)
}

func TestParseExtraction_Malformed(t *testing.T) {
	tests := map[string]string{
		"no json":             "I could not understand",
		"broken json":         `{"origin": "SFO",`,
		"missing confidence":  `{"origin": "SFO"}`,
		"confidence too high": `{"confidence": 3}`,
		"bad date":            `{"departure_date": "next friday", "confidence": 0.9}`,
		"wrong type":          `{"passengers": "two", "confidence": 0.9}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseExtraction(raw)
			assert.ErrorIs(t, err, domain.ErrMalformedExtraction)
		})
	}
}

func TestBuildMessages(t *testing.T) {
	req := domain.ExtractionRequest{
		Message: "  make it 3 people ",
		History: []domain.Turn{
			{Role: domain.TurnRoleSystem, Text: "SFO → CDG", Metadata: domain.TurnMetadata{Kind: domain.TurnKindSummary}},
			{Role: domain.TurnRoleUser, Text: "SFO to Paris"},
			{Role: domain.TurnRoleAssistant, Text: "When would you like to leave?"},
		},
		Today: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}

	messages := BuildMessages(req)

	require.Len(t, messages, 4)
	assert.Equal(t, Message{Role: "user", Content: "Context so far: SFO → CDG"}, messages[0])
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, Message{Role: "user", Content: "make it 3 people"}, messages[3])

	assert.Contains(t, SystemPrompt(req), "Today is 2026-10-16")
	assert.NotContains(t, SystemPrompt(req), "could not be parsed")
	req.Strict = true
	assert.Contains(t, SystemPrompt(req), "could not be parsed")
}
