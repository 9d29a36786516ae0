package gemini

import (
	"context"
	"errors"
	"fmt"

	"flight-assistant/configs"
	"flight-assistant/internal/adapters/output/llm"
	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

// Compile-time check to ensure GeminiExtractorAdapter implements Extractor interface
var _ output.Extractor = (*GeminiExtractorAdapter)(nil)

const defaultModel = "gemini-2.5-flash"

// GeminiExtractorAdapter struct - Extraction adapter for the Gemini API using JSON mode
type GeminiExtractorAdapter struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractorAdapter func - Creates the Gemini client
func NewGeminiExtractorAdapter(ctx context.Context, config configs.Gemini) (*GeminiExtractorAdapter, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	gc, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	logrus.Infof("Gemini extractor initialized with model: %s", model)

	return &GeminiExtractorAdapter{client: gc, model: model}, nil
}

// Extract asks Gemini for a schema-constrained JSON object and parses it
func (a *GeminiExtractorAdapter) Extract(ctx context.Context, request domain.ExtractionRequest) (*domain.Extraction, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, convertMessages(llm.BuildMessages(request)), buildConfig(request))
	if err != nil {
		return nil, classify(err)
	}

	extraction, err := llm.ParseExtraction(resp.Text())
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"model":      a.model,
		"confidence": extraction.Confidence,
	}).Info("Extraction completed")

	return extraction, nil
}

func buildConfig(request domain.ExtractionRequest) *genai.GenerateContentConfig {
	temperature := float32(0)
	return &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractionSchema(),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: llm.SystemPrompt(request)}},
		},
	}
}

func convertMessages(messages []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func extractionSchema() *genai.Schema {
	nullable := true
	field := func(t genai.Type) *genai.Schema {
		return &genai.Schema{Type: t, Nullable: &nullable}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"origin":         field(genai.TypeString),
			"destination":    field(genai.TypeString),
			"departure_date": field(genai.TypeString),
			"return_date":    field(genai.TypeString),
			"passengers":     field(genai.TypeInteger),
			"max_price":      field(genai.TypeNumber),
			"prefer_direct":  field(genai.TypeBoolean),
			"confidence":     {Type: genai.TypeNumber},
		},
		Required: []string{"confidence"},
	}
}

// classify maps Gemini API errors onto domain sentinels
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: gemini %d %s: %s", domain.ErrorForStatus(apiErr.Code), apiErr.Code, apiErr.Status, apiErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}
