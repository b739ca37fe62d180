// Package generation wraps the language-model backend behind a single
// Generate call with an explicit options record and a bounded response cache,
// so identical calls within a time window do not incur duplicate cost.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/deep-research/pkg/cache"
)

const (
	responseCacheSize = 256
	responseCacheTTL  = 10 * time.Minute
	maxRetries        = 3
)

// Options configures a single generation call. ExpectJSON switches the model
// into JSON mode; Schema, when set, is appended to the system prompt as the
// required response format.
type Options struct {
	ExpectJSON bool
	Schema     string
	Tools      []llms.Tool
}

// Generator issues calls against a langchaingo model. It is safe for
// concurrent use.
type Generator struct {
	Model     llms.Model
	ModelName string
	Logger    *slog.Logger

	// Backoff is the base delay unit between retries.
	Backoff   time.Duration
	responses *expirable.LRU[string, string]
}

// New creates a Generator around model. modelName participates in the
// response-cache key so that switching models never serves stale output.
func New(model llms.Model, modelName string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		Model:     model,
		ModelName: modelName,
		Logger:    logger,
		Backoff:   time.Second,
		responses: expirable.NewLRU[string, string](responseCacheSize, nil, responseCacheTTL),
	}
}

type responseKey struct {
	Model      string `json:"model"`
	System     string `json:"system,omitempty"`
	Prompt     string `json:"prompt"`
	ExpectJSON bool   `json:"expectJson,omitempty"`
	Schema     string `json:"schema,omitempty"`
	Tools      string `json:"tools,omitempty"`
}

func (g *Generator) key(system, prompt string, opts Options) (string, bool) {
	toolNames := make([]string, 0, len(opts.Tools))
	for _, t := range opts.Tools {
		if t.Function != nil {
			toolNames = append(toolNames, t.Function.Name)
		}
	}
	fp, err := cache.Fingerprint(responseKey{
		Model:      g.ModelName,
		System:     system,
		Prompt:     prompt,
		ExpectJSON: opts.ExpectJSON,
		Schema:     opts.Schema,
		Tools:      cache.Digest(toolNames),
	})
	if err != nil {
		return "", false
	}
	return fp, true
}

// Generate issues one call and returns the raw text of the first choice.
func (g *Generator) Generate(ctx context.Context, system, prompt string, opts Options) (string, error) {
	return g.GenerateValidated(ctx, system, prompt, opts, nil)
}

// GenerateValidated issues a call and runs validator over the response,
// retrying up to 3 times with linear backoff when the backend fails or the
// validator rejects the content. Only validated responses enter the cache.
func (g *Generator) GenerateValidated(ctx context.Context, system, prompt string, opts Options, validator func(string) error) (string, error) {
	key, ok := g.key(system, prompt, opts)
	if ok {
		if cached, hit := g.responses.Get(key); hit {
			if validator == nil || validator(cached) == nil {
				return cached, nil
			}
		}
	}

	if opts.Schema != "" {
		system = system + "\n\n# Response Format:\n" + opts.Schema
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	if system != "" {
		messages = []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, system),
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		}
	}

	var callOpts []llms.CallOption
	if opts.ExpectJSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}
	if len(opts.Tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(opts.Tools))
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			g.Logger.Warn("Retrying generation", "attempt", i+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.Backoff * time.Duration(i)):
			}
		}

		resp, err := g.Model.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			lastErr = fmt.Errorf("generation failed: %w", err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("model returned no choices")
			continue
		}

		content := resp.Choices[0].Content
		if validator != nil {
			if err := validator(content); err != nil {
				lastErr = fmt.Errorf("validation failed: %w", err)
				continue
			}
		}

		if ok {
			g.responses.Add(key, content)
		}
		return content, nil
	}

	return "", fmt.Errorf("generation failed after %d retries: %w", maxRetries, lastErr)
}
