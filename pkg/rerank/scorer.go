package rerank

import "context"

// Scorer assigns a relevance score to each document for the query.
// Scores are comparable within one call only; higher means more
// relevant. The returned slice is index-aligned with documents.
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
	Name() string
}
