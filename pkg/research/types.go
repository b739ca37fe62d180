// Package research implements the recursive research engine: it plans
// sub-queries for a topic, fans them out under a bounded worker pool,
// extracts learnings from retrieved documents, recurses with shrinking
// depth and breadth, and assembles the accumulated learnings into a report.
package research

// SubQuery is one expanded research question together with the goal it is
// meant to advance. Produced by the Planner, consumed once per branch.
type SubQuery struct {
	Query        string `json:"query"`
	ResearchGoal string `json:"researchGoal"`
}

// Progress is an immutable snapshot of the overall run, emitted exactly once
// per completed branch task.
type Progress struct {
	CurrentDepth     int    `json:"currentDepth"`
	TotalDepth       int    `json:"totalDepth"`
	CurrentBreadth   int    `json:"currentBreadth"`
	TotalBreadth     int    `json:"totalBreadth"`
	TotalQueries     int    `json:"totalQueries"`
	CompletedQueries int    `json:"completedQueries"`
	CurrentQuery     string `json:"currentQuery,omitempty"`
}

// Result is the unit returned by every engine invocation. Learnings and
// VisitedURLs never contain duplicate strings. The report-level fields
// (Content, Sources, Methodology, Limitations, Citations, Analysis,
// RawRetrieval) are populated only by the top-level Research call.
type Result struct {
	Learnings    []string `json:"learnings"`
	VisitedURLs  []string `json:"visitedUrls"`
	Content      string   `json:"content"`
	Sources      []string `json:"sources"`
	Methodology  string   `json:"methodology"`
	Limitations  string   `json:"limitations"`
	Citations    []string `json:"citations"`
	Analysis     string   `json:"analysis"`
	RawRetrieval string   `json:"rawRetrieval"`
}

// union appends items from each list in order, skipping exact duplicates.
func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, item := range list {
			if item == "" || seen[item] {
				continue
			}
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
