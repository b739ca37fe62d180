package clients

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/googleai"
)

// ModelType is an enum for the available Google AI models.
type ModelType string

const (
	// FastModel handles per-window extraction and planning calls.
	FastModel ModelType = "gemini-3-flash-preview"
	// ReasoningModel handles report assembly.
	ReasoningModel ModelType = "gemini-3-pro-preview"
)

// GoogleAi builds a langchaingo client for the given model. The API key is
// read from GOOGLE_API_KEY; a missing key is fatal at process start per the
// error-handling policy, so it is surfaced here as an error.
func GoogleAi(ctx context.Context, model ModelType) (*googleai.GoogleAI, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
	}

	// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(string(model)))
	if err != nil {
		return nil, fmt.Errorf("failed to create google ai client: %w", err)
	}

	return llm, nil
}
