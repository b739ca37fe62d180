package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mikeboe/deep-research/pkg/cache"
	"github.com/mikeboe/deep-research/pkg/generation"
	"github.com/mikeboe/deep-research/pkg/retrieval"
	"github.com/mikeboe/deep-research/pkg/splitter"
)

const (
	// DefaultConcurrency bounds how many branches run at once per level.
	DefaultConcurrency = 5
	// DefaultMaxVisitedURLs is the global URL cap per research call;
	// exceeding it terminates a subtree, it is not an error.
	DefaultMaxVisitedURLs = 20
	// DefaultLearningsPerBranch caps new learnings extracted per branch.
	DefaultLearningsPerBranch = 3
)

// Process-wide caches, initialized once and living for the process lifetime.
var (
	planCache   = cache.New[[]SubQuery](cache.PlanCacheSize)
	reportCache = cache.New[Report](cache.ReportCacheSize)
)

const branchSystemPrompt = `You are a research assistant.
Given a search query and prior learnings, state the key factual learnings relevant to the query and list the URLs of sources worth reading in full.`

const branchSchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "learnings": {"type": "array", "items": {"type": "string"}, "description": "Key factual learnings relevant to the query"},
    "urls": {"type": "array", "items": {"type": "string"}, "description": "Source URLs worth retrieving"}
  },
  "required": ["learnings", "urls"]
}`

// Engine drives the depth/breadth recursion. One Engine handles one or more
// research calls; all mutable per-call state lives on the call stack.
type Engine struct {
	Planner   *Planner
	Processor *Processor
	Reporter  *Reporter
	Gen       *generation.Generator
	Retriever retrieval.Retriever
	Logger    *slog.Logger

	Concurrency        int
	MaxVisitedURLs     int
	LearningsPerBranch int

	// OnProgress, when set, receives exactly one snapshot per completed
	// branch task. Called outside the tracker lock.
	OnProgress func(Progress)
}

// NewEngine wires an Engine with the process-wide caches and default limits.
func NewEngine(gen *generation.Generator, retriever retrieval.Retriever, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Planner:   &Planner{Gen: gen, Cache: planCache, Logger: logger},
		Processor: &Processor{Gen: gen, Splitter: splitter.NewRecursiveCharacterTextSplitter(splitter.DefaultWindowSize, splitter.DefaultWindowOverlap), Logger: logger},
		Reporter:  &Reporter{Gen: gen, Cache: reportCache, Logger: logger},
		Gen:       gen,
		Retriever: retriever,
		Logger:    logger,

		Concurrency:        DefaultConcurrency,
		MaxVisitedURLs:     DefaultMaxVisitedURLs,
		LearningsPerBranch: DefaultLearningsPerBranch,
	}
}

// Research is the top-level entry: it runs the recursive orchestration for
// topic, then assembles the accumulated learnings into a report. The error
// is non-nil only when ctx is done; every other failure is absorbed into a
// partial result.
func (e *Engine) Research(ctx context.Context, topic string, depth, breadth int, existingLearnings []string) (*Result, error) {
	tr := &progressTracker{
		p:    Progress{CurrentDepth: depth, TotalDepth: depth, CurrentBreadth: breadth, TotalBreadth: breadth},
		emit: e.OnProgress,
	}

	res := e.run(ctx, topic, "", depth, breadth, existingLearnings, nil, nil, tr)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := res
	if depth > 0 {
		report := e.Reporter.Assemble(ctx, topic, res.Learnings, res.VisitedURLs)
		out.Content = report.Document
		out.Citations = report.Citations
		out.Analysis = report.Summary
		out.Methodology = fmt.Sprintf(
			"Recursive web research with initial depth %d and breadth %d; %d sub-queries executed across %d sources.",
			depth, breadth, tr.snapshot().CompletedQueries, len(res.VisitedURLs))
		out.Limitations = "This report was generated automatically from retrieved web content. Findings have not been independently verified and may be incomplete or outdated."
		out.RawRetrieval = strings.Join(res.Learnings, "\n")
	}
	out.Sources = res.VisitedURLs

	if out.Learnings == nil {
		out.Learnings = []string{}
	}
	if out.VisitedURLs == nil {
		out.VisitedURLs = []string{}
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return &out, nil
}

// run executes one orchestrator invocation: guard, plan, expand under the
// worker pool, aggregate. It always returns once every spawned branch has
// settled; a partial result is still a result.
func (e *Engine) run(ctx context.Context, topic, goal string, depth, breadth int, priorLearnings, priorURLs, priorQueries []string, tr *progressTracker) Result {
	if depth <= 0 || len(priorURLs) > e.maxVisitedURLs() {
		return Result{}
	}
	tr.level(depth, breadth)

	queries := e.Planner.Plan(ctx, topic, goal, priorLearnings, breadth)
	if len(queries) == 0 {
		return Result{}
	}
	tr.addQueries(len(queries), queries[0].Query)

	results := make([]Result, len(queries))
	semaphore := make(chan struct{}, e.concurrency())
	var wg sync.WaitGroup

	for i, sq := range queries {
		wg.Add(1)
		go func(i int, sq SubQuery) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i] = e.branch(ctx, sq, depth, breadth, priorLearnings, priorURLs, priorQueries, tr)
		}(i, sq)
	}
	wg.Wait()

	learningSets := make([][]string, len(results))
	urlSets := make([][]string, len(results))
	for i, r := range results {
		learningSets[i] = r.Learnings
		urlSets[i] = r.VisitedURLs
	}
	return Result{
		Learnings:   union(learningSets...),
		VisitedURLs: union(urlSets...),
	}
}

// branch executes one sub-query task. Every failure path resolves to an
// empty Result; nothing thrown here ever reaches the caller, and exactly one
// progress snapshot is emitted on the way out regardless of outcome.
func (e *Engine) branch(ctx context.Context, sq SubQuery, depth, breadth int, priorLearnings, priorURLs, priorQueries []string, tr *progressTracker) (res Result) {
	defer tr.complete(sq.Query)
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("Branch task panicked", "query", sq.Query, "panic", r)
			res = Result{}
		}
	}()

	// A sub-query planned anywhere on this path has already been expanded;
	// re-running it would only loop. Queries are deduplicated in their own
	// namespace, separate from visited URLs.
	if contains(priorQueries, sq.Query) {
		return Result{}
	}

	raw, err := e.Gen.Generate(ctx, branchSystemPrompt, branchInput(sq, priorLearnings), generation.Options{
		ExpectJSON: true,
		Schema:     branchSchema,
	})
	if err != nil {
		e.Logger.Warn("Branch generation failed", "query", sq.Query, "error", err)
		return Result{}
	}
	candidateLearnings, urls := parseBranchResponse(raw)

	var docs []retrieval.Document
	if len(urls) > 0 {
		docs = e.Retriever.Retrieve(ctx, urls)
	}
	extraction := e.Processor.ExtractLearnings(ctx, sq.Query, docs, e.learningsPerBranch())

	allLearnings := union(priorLearnings, candidateLearnings, extraction.Learnings)
	allURLs := union(priorURLs, urls)

	if depth-1 > 0 {
		nextTopic := fmt.Sprintf("Previous research goal: %s\nFollow-up research directions:\n%s",
			sq.ResearchGoal, strings.Join(extraction.FollowUpQuestions, "\n"))
		nextQueries := union(priorQueries, []string{sq.Query})
		nextBreadth := (breadth + 1) / 2

		return e.run(ctx, nextTopic, sq.ResearchGoal, depth-1, nextBreadth, allLearnings, allURLs, nextQueries, tr)
	}

	return Result{Learnings: allLearnings, VisitedURLs: allURLs}
}

func branchInput(sq SubQuery, priorLearnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", sq.Query)
	if sq.ResearchGoal != "" {
		fmt.Fprintf(&b, "Research goal: %s\n", sq.ResearchGoal)
	}
	if len(priorLearnings) > 0 {
		fmt.Fprintf(&b, "\nPrior learnings:\n%s\n", strings.Join(priorLearnings, "\n"))
	}
	return b.String()
}

// parseBranchResponse pulls learnings and URLs out of a branch generation
// response: structured fields when the schema was honored, plus a permissive
// URL scan over the raw text for when it was not.
func parseBranchResponse(raw string) (learnings, urls []string) {
	var resp struct {
		Learnings []string `json:"learnings"`
		Urls      []string `json:"urls"`
	}
	if extractJSON(raw, &resp) {
		learnings = resp.Learnings
	}
	return union(learnings), union(resp.Urls, extractURLs(raw))
}

func (e *Engine) concurrency() int {
	if e.Concurrency < 1 {
		return DefaultConcurrency
	}
	return e.Concurrency
}

func (e *Engine) maxVisitedURLs() int {
	if e.MaxVisitedURLs < 1 {
		return DefaultMaxVisitedURLs
	}
	return e.MaxVisitedURLs
}

func (e *Engine) learningsPerBranch() int {
	if e.LearningsPerBranch < 1 {
		return DefaultLearningsPerBranch
	}
	return e.LearningsPerBranch
}

// progressTracker accumulates run-wide counters and emits immutable
// snapshots. Emission happens outside the lock with a copied value.
type progressTracker struct {
	mu   sync.Mutex
	p    Progress
	emit func(Progress)
}

func (t *progressTracker) level(depth, breadth int) {
	t.mu.Lock()
	t.p.CurrentDepth = depth
	t.p.CurrentBreadth = breadth
	t.mu.Unlock()
}

func (t *progressTracker) addQueries(n int, first string) {
	t.mu.Lock()
	t.p.TotalQueries += n
	if t.p.CurrentQuery == "" {
		t.p.CurrentQuery = first
	}
	t.mu.Unlock()
}

func (t *progressTracker) complete(query string) {
	t.mu.Lock()
	t.p.CompletedQueries++
	t.p.CurrentQuery = query
	snap := t.p
	emit := t.emit
	t.mu.Unlock()

	if emit != nil {
		emit(snap)
	}
}

func (t *progressTracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}
