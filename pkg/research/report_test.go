package research

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mikeboe/deep-research/pkg/cache"
	"github.com/mikeboe/deep-research/pkg/generation"
)

func newTestReporter(model *stubModel) *Reporter {
	gen := generation.New(model, "stub", nil)
	gen.Backoff = 0
	return &Reporter{
		Gen:    gen,
		Cache:  cache.New[Report](cache.ReportCacheSize),
		Logger: slog.Default(),
	}
}

func stubStages(system, human string) (string, error) {
	if resp, ok := reportStageResponse(system, human); ok {
		return resp, nil
	}
	return "", errors.New("unexpected call")
}

func TestAssembleSectionOrder(t *testing.T) {
	model := &stubModel{respond: stubStages}
	r := newTestReporter(model)

	report := r.Assemble(context.Background(), "T", []string{"A", "B"}, nil)
	doc := report.Document

	markers := []string{
		"# Title",
		"## Abstract",
		"Sum",
		"## Table of Contents",
		"1. Intro",
		"## Introduction",
		"## Body",
		"Body text",
		"## References",
		noReferences,
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(doc, m)
		if idx < 0 {
			t.Fatalf("document missing %q:\n%s", m, doc)
		}
		if idx < last {
			t.Errorf("%q appears out of order", m)
		}
		last = idx
	}

	if report.Title != "Title" || report.Summary != "Sum" {
		t.Errorf("report fields = %+v", report)
	}
}

func TestAssembleRendersReferences(t *testing.T) {
	model := &stubModel{respond: stubStages}
	r := newTestReporter(model)

	report := r.Assemble(context.Background(), "T", []string{"A"}, []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/1", // duplicate must render once
	})

	doc := report.Document
	if strings.Contains(doc, noReferences) {
		t.Error("document must list references instead of the empty placeholder")
	}
	if !strings.Contains(doc, "- https://example.com/1\n- https://example.com/2") {
		t.Errorf("references not rendered as a deduplicated bulleted list:\n%s", doc)
	}
	if strings.Count(doc, "- https://example.com/1") != 1 {
		t.Error("duplicate reference rendered more than once")
	}
}

func TestAssembleStageFailureUsesFallback(t *testing.T) {
	model := &stubModel{respond: func(system, human string) (string, error) {
		if strings.Contains(human, "abstract") {
			return "", errors.New("summary backend down")
		}
		return stubStages(system, human)
	}}
	r := newTestReporter(model)

	report := r.Assemble(context.Background(), "T", []string{"A"}, nil)
	if report.Summary != fallbackSummary {
		t.Errorf("summary = %q, want fallback", report.Summary)
	}
	// Remaining stages still ran.
	if report.Title != "Title" {
		t.Errorf("title = %q, want the title stage output despite the summary failure", report.Title)
	}
	if !strings.Contains(report.Document, "Body text") {
		t.Error("sections stage output missing from document")
	}
}

func TestAssembleUnparseableStageUsesFallback(t *testing.T) {
	model := &stubModel{respond: func(system, human string) (string, error) {
		if strings.Contains(human, "Create an outline") {
			return "no json in sight", nil
		}
		return stubStages(system, human)
	}}
	r := newTestReporter(model)

	report := r.Assemble(context.Background(), "T", []string{"A"}, nil)
	if !strings.Contains(report.Document, fallbackOutline) {
		t.Errorf("document missing outline fallback:\n%s", report.Document)
	}
}

func TestAssembleCacheHitSkipsStages(t *testing.T) {
	model := &stubModel{respond: stubStages}
	r := newTestReporter(model)

	ctx := context.Background()
	first := r.Assemble(ctx, "T", []string{"A"}, []string{"https://example.com"})
	stageCalls := model.countCalls("research writer")

	second := r.Assemble(ctx, "T", []string{"A"}, []string{"https://example.com"})
	if second.Document != first.Document {
		t.Error("cache hit must return the stored document verbatim")
	}
	if n := model.countCalls("research writer"); n != stageCalls {
		t.Errorf("stage calls grew from %d to %d on a cache hit", stageCalls, n)
	}

	// A different learnings digest must bypass the cached report.
	r.Assemble(ctx, "T", []string{"A", "B"}, []string{"https://example.com"})
	if n := model.countCalls("research writer"); n == stageCalls {
		t.Error("changed learnings must miss the report cache")
	}
}
