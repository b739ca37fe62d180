package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/deep-research/pkg/generation"
	"github.com/mikeboe/deep-research/pkg/retrieval"
	"github.com/mikeboe/deep-research/pkg/splitter"
)

const processorSystemPrompt = `You are a research analyst.
Given contents retrieved for a search query, extract a list of concise, information-dense learnings.
Each learning must be a standalone factual statement. Include entities, metrics, numbers and dates where present.
Also propose follow-up questions that would deepen the research.`

const processorSchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "learnings": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Standalone factual learnings extracted from the content"
    },
    "followUpQuestions": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Questions that would deepen the research"
    }
  },
  "required": ["learnings", "followUpQuestions"]
}`

// Extraction is the structured output of processing one sub-query's
// documents. Learnings may contain duplicates; deduplication happens at the
// engine's aggregation step.
type Extraction struct {
	Learnings         []string `json:"learnings"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// Processor turns retrieved documents into learnings via windowed
// generation calls.
type Processor struct {
	Gen      *generation.Generator
	Splitter *splitter.TextSplitter
	Logger   *slog.Logger
}

// ExtractLearnings concatenates the usable document text, splits it into
// overlapping windows and issues one generation call per window. Windows
// whose responses cannot be parsed are skipped; the rest still contribute.
// Learnings are concatenated in window order and truncated to maxLearnings.
func (p *Processor) ExtractLearnings(ctx context.Context, query string, docs []retrieval.Document, maxLearnings int) Extraction {
	var parts []string
	for _, d := range docs {
		if !d.Metadata.Success || strings.TrimSpace(d.TextContent) == "" {
			continue
		}
		parts = append(parts, d.TextContent)
	}
	if len(parts) == 0 {
		return Extraction{Learnings: []string{}, FollowUpQuestions: []string{}}
	}

	windows, err := p.Splitter.SplitText(strings.Join(parts, "\n\n"))
	if err != nil {
		p.Logger.Warn("Text splitting failed", "query", query, "error", err)
		return Extraction{Learnings: []string{}, FollowUpQuestions: []string{}}
	}

	result := Extraction{Learnings: []string{}, FollowUpQuestions: []string{}}
	for i, window := range windows {
		input := fmt.Sprintf("Query: %s\n\nContent:\n<content>\n%s\n</content>", query, window)

		raw, err := p.Gen.Generate(ctx, processorSystemPrompt, input, generation.Options{
			ExpectJSON: true,
			Schema:     processorSchema,
		})
		if err != nil {
			p.Logger.Warn("Window generation failed, skipping", "query", query, "window", i, "error", err)
			continue
		}

		var ext Extraction
		if !extractJSON(raw, &ext) {
			p.Logger.Warn("Window response unparseable, skipping", "query", query, "window", i)
			continue
		}
		result.Learnings = append(result.Learnings, ext.Learnings...)
		result.FollowUpQuestions = append(result.FollowUpQuestions, ext.FollowUpQuestions...)
	}

	if maxLearnings >= 0 && len(result.Learnings) > maxLearnings {
		result.Learnings = result.Learnings[:maxLearnings]
	}
	if maxLearnings >= 0 && len(result.FollowUpQuestions) > maxLearnings {
		result.FollowUpQuestions = result.FollowUpQuestions[:maxLearnings]
	}
	return result
}
