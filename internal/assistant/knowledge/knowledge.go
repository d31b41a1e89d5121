// Package knowledge provides semantic lookup over the QuickSpin knowledge
// base. The store keeps documents in Redis and ranks them with lexical
// relevance scoring; the Retriever on top degrades to empty results instead
// of failing, so callers treat missing context as valid degraded input.
package knowledge

import (
	"context"

	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// Category partitions the knowledge base by topic.
type Category string

const (
	CategorySetup        Category = "setup"
	CategoryCommonIssues Category = "common_issues"
	CategoryPricing      Category = "pricing"
	CategoryOptimization Category = "optimization"
	CategoryGeneral      Category = "general"

	// CategoryAny disables category filtering.
	CategoryAny Category = ""
)

// Snippet is one scored search hit.
type Snippet struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

// Store is the knowledge collaborator contract.
type Store interface {
	// Search returns up to topK snippets ordered by descending relevance.
	Search(ctx context.Context, query string, category Category, topK int) ([]Snippet, error)
}

// Retriever wraps a Store with the degradation policy the pipeline relies
// on: retrieval never surfaces an error, an unreachable store just yields no
// context.
type Retriever struct {
	store Store
}

// NewRetriever wraps the given store.
func NewRetriever(store Store) *Retriever {
	return &Retriever{store: store}
}

// Retrieve searches the knowledge base. topK is clamped to at least 1. On
// any backend failure it logs and returns an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, category Category, topK int) []Snippet {
	if topK < 1 {
		topK = 1
	}
	snippets, err := r.store.Search(ctx, query, category, topK)
	if err != nil {
		logx.Warn().Err(err).
			Str("category", string(category)).
			Msg("knowledge search failed, continuing without context")
		return nil
	}
	return snippets
}
