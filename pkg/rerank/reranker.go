package rerank

import (
	"context"
	"log"
	"sort"

	"city-inspect-be/pkg/store"
)

// Reranker reorders fused candidates by cross-encoder relevance and
// keeps the top evidenceCount as evidence. The fusion score survives as
// metadata only; ordering after this stage is the rerank score alone.
// When the primary scorer fails the fallback takes over, so reranking
// degrades rather than failing the query.
type Reranker struct {
	scorer        Scorer
	fallback      Scorer
	evidenceCount int
	logger        *log.Logger
}

func NewReranker(scorer Scorer, fallback Scorer, evidenceCount int, logger *log.Logger) *Reranker {
	return &Reranker{
		scorer:        scorer,
		fallback:      fallback,
		evidenceCount: evidenceCount,
		logger:        logger,
	}
}

// Rerank scores candidates against query and returns them as ranked
// evidence, non-increasing by rerank score, truncated to the evidence
// count. Ties keep the fused order. An empty candidate list returns an
// empty list without touching any scorer.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []store.FusedCandidate) ([]store.EvidenceItem, error) {
	if len(candidates) == 0 {
		return []store.EvidenceItem{}, nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Content
	}

	scores, err := r.score(ctx, query, documents)
	if err != nil {
		return nil, err
	}

	evidence := make([]store.EvidenceItem, len(candidates))
	for i, c := range candidates {
		evidence[i] = store.EvidenceItem{
			FusedCandidate: c,
			RerankScore:    scores[i],
		}
	}

	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].RerankScore > evidence[j].RerankScore
	})

	if r.evidenceCount > 0 && len(evidence) > r.evidenceCount {
		evidence = evidence[:r.evidenceCount]
	}

	for i := range evidence {
		evidence[i].Rank = i + 1
	}
	return evidence, nil
}

func (r *Reranker) score(ctx context.Context, query string, documents []string) ([]float64, error) {
	scores, err := r.scorer.Score(ctx, query, documents)
	if err == nil {
		return scores, nil
	}

	if r.fallback == nil {
		return nil, err
	}

	r.logger.Printf("[WARN] Scorer %s failed, falling back to %s: %v", r.scorer.Name(), r.fallback.Name(), err)
	return r.fallback.Score(ctx, query, documents)
}
