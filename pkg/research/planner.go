package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/deep-research/pkg/cache"
	"github.com/mikeboe/deep-research/pkg/generation"
)

// DefaultBreadth is the documented default number of sub-queries per level.
// A breadth equal to the default is omitted from cache keys so structurally
// identical calls normalize to the same fingerprint.
const DefaultBreadth = 4

const plannerSystemPrompt = `You are a research planner.
Given a research topic, generate a list of specific search queries to investigate it.
Each query must be distinct and must carry a short research goal explaining what answering it would contribute.
Return no more queries than requested.`

const plannerSchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "queries": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "query": {"type": "string", "description": "The search query"},
          "researchGoal": {"type": "string", "description": "What this query should uncover"}
        },
        "required": ["query", "researchGoal"]
      }
    }
  },
  "required": ["queries"]
}`

// Planner turns a topic, a research goal and prior learnings into a bounded
// list of sub-queries, consulting the plan cache first.
type Planner struct {
	Gen    *generation.Generator
	Cache  *cache.Store[[]SubQuery]
	Logger *slog.Logger
}

type planKey struct {
	Topic        string `json:"topic"`
	ResearchGoal string `json:"researchGoal,omitempty"`
	Breadth      int    `json:"breadth,omitempty"`
	Learnings    string `json:"learnings,omitempty"`
}

// Plan returns at most breadth sub-queries. Any backend or parse failure
// yields an empty plan; callers treat zero sub-queries as "no further
// expansion at this node". Plan never returns an error.
func (p *Planner) Plan(ctx context.Context, topic, researchGoal string, priorLearnings []string, breadth int) []SubQuery {
	if breadth <= 0 {
		return nil
	}

	key := planKey{
		Topic:        topic,
		ResearchGoal: researchGoal,
		Breadth:      canonicalBreadth(breadth),
		Learnings:    cache.Digest(priorLearnings),
	}
	if cached, ok := p.Cache.Get(key); ok {
		return cached
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if researchGoal != "" {
		fmt.Fprintf(&b, "Research goal: %s\n", researchGoal)
	}
	fmt.Fprintf(&b, "Number of queries: %d\n", breadth)
	if len(priorLearnings) > 0 {
		fmt.Fprintf(&b, "\nLearnings from prior research, use them to avoid repetition and go deeper:\n%s\n",
			strings.Join(priorLearnings, "\n"))
	}

	raw, err := p.Gen.Generate(ctx, plannerSystemPrompt, b.String(), generation.Options{
		ExpectJSON: true,
		Schema:     plannerSchema,
	})
	if err != nil {
		p.Logger.Warn("Planning failed, returning empty plan", "topic", topic, "error", err)
		return nil
	}

	queries := parsePlan(raw)
	if len(queries) > breadth {
		queries = queries[:breadth]
	}
	if len(queries) == 0 {
		p.Logger.Warn("Planner produced no valid sub-queries", "topic", topic)
		return nil
	}

	p.Cache.Set(key, queries)
	return queries
}

func canonicalBreadth(breadth int) int {
	if breadth == DefaultBreadth {
		return 0
	}
	return breadth
}

// parsePlan accepts either the documented {"queries": [...]} envelope or a
// bare JSON array, embedded in surrounding text or not. Invalid items are
// dropped silently.
func parsePlan(raw string) []SubQuery {
	var envelope struct {
		Queries []SubQuery `json:"queries"`
	}
	var items []SubQuery

	if extractJSON(raw, &envelope) && len(envelope.Queries) > 0 {
		items = envelope.Queries
	} else {
		var arr []SubQuery
		if extractJSON(raw, &arr) {
			items = arr
		}
	}

	var valid []SubQuery
	for _, q := range items {
		q.Query = strings.TrimSpace(q.Query)
		q.ResearchGoal = strings.TrimSpace(q.ResearchGoal)
		if q.Query == "" {
			continue
		}
		valid = append(valid, q)
	}
	return valid
}
