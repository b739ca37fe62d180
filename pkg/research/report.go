package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/deep-research/pkg/cache"
	"github.com/mikeboe/deep-research/pkg/generation"
)

// Per-stage fallbacks: a failed stage degrades to placeholder text and the
// remaining stages still run.
const (
	fallbackOutline  = "Outline could not be generated."
	fallbackSections = "Report body could not be generated."
	fallbackSummary  = "Summary could not be generated."
	fallbackTitle    = "Title could not be generated."
	noReferences     = "No references found."
)

const reportSystemPrompt = `You are a research writer producing a rigorous, well-structured report from gathered learnings.`

const outlineSchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "outline": {"type": "array", "items": {"type": "string"}, "description": "Numbered outline entries for the report"}
  },
  "required": ["outline"]
}`

const sectionsSchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "sections": {"type": "array", "items": {"type": "string"}, "description": "One markdown section per outline entry"},
    "citations": {"type": "array", "items": {"type": "string"}, "description": "Optional citation strings"}
  },
  "required": ["sections"]
}`

const summarySchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "summary": {"type": "string", "description": "A one-paragraph abstract of the findings"}
  },
  "required": ["summary"]
}`

const titleSchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "title": {"type": "string", "description": "A concise report title"}
  },
  "required": ["title"]
}`

// Report is the output of the assembly pipeline.
type Report struct {
	Document  string   `json:"document"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Citations []string `json:"citations"`
}

// Reporter assembles final learnings into a structured document through a
// four-stage pipeline (outline, sections, summary, title), consulting the
// report cache first.
type Reporter struct {
	Gen    *generation.Generator
	Cache  *cache.Store[Report]
	Logger *slog.Logger
}

type reportKey struct {
	Prompt    string `json:"prompt"`
	Learnings string `json:"learnings,omitempty"`
	URLs      string `json:"urls,omitempty"`
}

// Assemble runs the pipeline over (topic, learnings) and renders the final
// document in the fixed section order: Title, Abstract, Table of Contents,
// Introduction, Body, References. A cache hit returns the stored report
// verbatim, skipping all four stages.
func (r *Reporter) Assemble(ctx context.Context, topic string, learnings, visitedURLs []string) Report {
	key := reportKey{
		Prompt:    topic,
		Learnings: cache.Digest(learnings),
		URLs:      cache.Digest(visitedURLs),
	}
	if cached, ok := r.Cache.Get(key); ok {
		return cached
	}

	learningsBlock := strings.Join(learnings, "\n")

	outline := r.generateOutline(ctx, topic, learningsBlock)
	sections, citations := r.writeSections(ctx, topic, outline, learningsBlock)
	summary := r.generateSummary(ctx, learningsBlock)
	title := r.generateTitle(ctx, topic, learningsBlock)

	report := Report{
		Document:  renderDocument(topic, title, summary, outline, sections, visitedURLs),
		Title:     title,
		Summary:   summary,
		Citations: citations,
	}
	r.Cache.Set(key, report)
	return report
}

func (r *Reporter) generateOutline(ctx context.Context, topic, learnings string) []string {
	input := fmt.Sprintf("Create an outline for a research report on the topic below.\n\nTopic: %s\n\nLearnings:\n%s", topic, learnings)
	raw, err := r.Gen.Generate(ctx, reportSystemPrompt, input, generation.Options{ExpectJSON: true, Schema: outlineSchema})
	if err != nil {
		r.Logger.Warn("Outline stage failed", "error", err)
		return []string{fallbackOutline}
	}

	var resp struct {
		Outline []string `json:"outline"`
	}
	if !extractJSON(raw, &resp) || len(resp.Outline) == 0 {
		r.Logger.Warn("Outline stage unparseable")
		return []string{fallbackOutline}
	}
	return resp.Outline
}

func (r *Reporter) writeSections(ctx context.Context, topic string, outline []string, learnings string) ([]string, []string) {
	input := fmt.Sprintf("Write one detailed markdown section per outline entry for a report on %q.\n\nOutline:\n%s\n\nLearnings:\n%s",
		topic, strings.Join(outline, "\n"), learnings)
	raw, err := r.Gen.Generate(ctx, reportSystemPrompt, input, generation.Options{ExpectJSON: true, Schema: sectionsSchema})
	if err != nil {
		r.Logger.Warn("Sections stage failed", "error", err)
		return []string{fallbackSections}, nil
	}

	var resp struct {
		Sections  []string `json:"sections"`
		Citations []string `json:"citations"`
	}
	if !extractJSON(raw, &resp) || len(resp.Sections) == 0 {
		r.Logger.Warn("Sections stage unparseable")
		return []string{fallbackSections}, nil
	}
	return resp.Sections, resp.Citations
}

func (r *Reporter) generateSummary(ctx context.Context, learnings string) string {
	input := fmt.Sprintf("Write a one-paragraph abstract summarizing these research learnings:\n%s", learnings)
	raw, err := r.Gen.Generate(ctx, reportSystemPrompt, input, generation.Options{ExpectJSON: true, Schema: summarySchema})
	if err != nil {
		r.Logger.Warn("Summary stage failed", "error", err)
		return fallbackSummary
	}

	var resp struct {
		Summary string `json:"summary"`
	}
	if !extractJSON(raw, &resp) || strings.TrimSpace(resp.Summary) == "" {
		r.Logger.Warn("Summary stage unparseable")
		return fallbackSummary
	}
	return resp.Summary
}

func (r *Reporter) generateTitle(ctx context.Context, topic, learnings string) string {
	input := fmt.Sprintf("Propose a concise title for a research report on %q given these learnings:\n%s", topic, learnings)
	raw, err := r.Gen.Generate(ctx, reportSystemPrompt, input, generation.Options{ExpectJSON: true, Schema: titleSchema})
	if err != nil {
		r.Logger.Warn("Title stage failed", "error", err)
		return fallbackTitle
	}

	var resp struct {
		Title string `json:"title"`
	}
	if !extractJSON(raw, &resp) || strings.TrimSpace(resp.Title) == "" {
		r.Logger.Warn("Title stage unparseable")
		return fallbackTitle
	}
	return resp.Title
}

func renderDocument(topic, title, summary string, outline, sections, visitedURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Abstract\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n")

	b.WriteString("## Table of Contents\n\n")
	b.WriteString(strings.Join(outline, "\n"))
	b.WriteString("\n\n")

	b.WriteString("## Introduction\n\n")
	fmt.Fprintf(&b, "This report presents the findings of automated research on the topic: %s.\n\n", topic)

	b.WriteString("## Body\n\n")
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\n")

	b.WriteString("## References\n\n")
	if len(visitedURLs) == 0 {
		b.WriteString(noReferences)
	} else {
		for _, u := range union(visitedURLs) {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}
	b.WriteString("\n")

	return b.String()
}
