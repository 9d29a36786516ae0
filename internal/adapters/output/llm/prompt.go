// Package llm holds the prompt and response contract shared by the extraction adapters.
package llm

import (
	"fmt"
	"strings"

	"flight-assistant/internal/domain"
)

const systemPrompt = `You extract flight search details from a traveller's message.
Today is %s. Resolve relative dates ("next Friday", "in two weeks") against today.
Return a single JSON object with exactly these keys:
  "origin": IATA airport code (3 letters) or null
  "destination": IATA airport code (3 letters) or null
  "departure_date": "YYYY-MM-DD" or null
  "return_date": "YYYY-MM-DD" or null
  "passengers": integer or null
  "max_price": number or null
  "prefer_direct": true, false or null
  "confidence": number between 0 and 1
Use null for anything the traveller did not state in this message. Map city names to their
main airport code. Set confidence to how sure you are that the non-null fields are right.`

const strictSuffix = `
Your previous answer could not be parsed. Respond with the JSON object only: no prose,
no markdown fences, no extra keys.`

// Message is a role/content pair in provider-neutral form
type Message struct {
	Role    string
	Content string
}

// SystemPrompt returns the extraction instructions for a request
func SystemPrompt(req domain.ExtractionRequest) string {
	prompt := fmt.Sprintf(systemPrompt, req.Today.Format(domain.OnlyDate))
	if req.Strict {
		prompt += strictSuffix
	}
	return prompt
}

// BuildMessages renders recent history followed by the latest message.
// Summary turns are passed as context, not as dialogue.
func BuildMessages(req domain.ExtractionRequest) []Message {
	messages := make([]Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		switch {
		case turn.IsSummary():
			messages = append(messages, Message{Role: "user", Content: "Context so far: " + turn.Text})
		case turn.Role == domain.TurnRoleUser:
			messages = append(messages, Message{Role: "user", Content: turn.Text})
		case turn.Role == domain.TurnRoleAssistant:
			messages = append(messages, Message{Role: "assistant", Content: turn.Text})
		}
	}
	messages = append(messages, Message{Role: "user", Content: strings.TrimSpace(req.Message)})
	return messages
}
