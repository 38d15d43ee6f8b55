// Package retrieval supplies ranked document context for a query. The
// orchestrator injects retrieved snippets into the model invocation when a
// provider is configured; retrieval failure or absence never fails a
// request. Embedding, chunking, and vector indexing are deliberately outside
// this package; the bundled store ranks by plain term overlap.
package retrieval

import (
	"context"
	"sort"
	"strings"
)

// Snippet is one ranked piece of document context.
type Snippet struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ContextProvider returns up to k snippets relevant to a query, best first.
type ContextProvider interface {
	Retrieve(ctx context.Context, query string, k int) ([]Snippet, error)
}

// Static is a fixed in-memory provider, mainly for tests and small
// deployments without a document store.
type Static struct {
	Snippets []Snippet
}

// Retrieve ranks the static snippets against the query.
func (s *Static) Retrieve(ctx context.Context, query string, k int) ([]Snippet, error) {
	scored := make([]Snippet, 0, len(s.Snippets))
	for _, sn := range s.Snippets {
		sn.Score = overlapScore(query, sn.Content)
		if sn.Score > 0 {
			scored = append(scored, sn)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// overlapScore is the fraction of query terms present in the text. Terms
// shorter than three runes are noise and skipped.
func overlapScore(query, text string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	lower := strings.ToLower(text)
	total := 0
	matched := 0
	for _, term := range terms {
		term = strings.Trim(term, ".,!?;:\"'")
		if len(term) < 3 {
			continue
		}
		total++
		if strings.Contains(lower, term) {
			matched++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

// FormatContext renders snippets into the block appended to a model
// invocation's user message.
func FormatContext(snippets []Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Relevant context from documents:\n")
	for _, sn := range snippets {
		sb.WriteString("\nFrom ")
		sb.WriteString(sn.Source)
		sb.WriteString(":\n")
		sb.WriteString(sn.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
