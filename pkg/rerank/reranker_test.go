package rerank

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"city-inspect-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScorer struct {
	name   string
	scores []float64
	err    error
	calls  int
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(_ context.Context, _ string, documents []string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.scores) != len(documents) {
		return nil, errors.New("stub score count mismatch")
	}
	return s.scores, nil
}

func fusedCandidate(id string, fusionScore float64) store.FusedCandidate {
	return store.FusedCandidate{
		Candidate: store.Candidate{
			ID:       id,
			Modality: store.ModalityText,
			Content:  "content " + id,
		},
		FusionScore: fusionScore,
		FromText:    true,
	}
}

func newTestReranker(scorer, fallback Scorer, count int) *Reranker {
	return NewReranker(scorer, fallback, count, log.New(io.Discard, "", 0))
}

func TestRerankEmptyInputSkipsScorer(t *testing.T) {
	scorer := &stubScorer{name: "primary"}
	reranker := newTestReranker(scorer, nil, 3)

	evidence, err := reranker.Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, evidence)
	assert.Zero(t, scorer.calls)
}

func TestRerankOrdersByRerankScoreNotFusionScore(t *testing.T) {
	candidates := []store.FusedCandidate{
		fusedCandidate("a", 0.9),
		fusedCandidate("b", 0.5),
		fusedCandidate("c", 0.1),
	}
	// Rerank inverts the fusion order.
	scorer := &stubScorer{name: "primary", scores: []float64{0.1, 0.5, 0.9}}
	reranker := newTestReranker(scorer, nil, 3)

	evidence, err := reranker.Rerank(context.Background(), "query", candidates)
	require.NoError(t, err)
	require.Len(t, evidence, 3)

	assert.Equal(t, "c", evidence[0].ID)
	assert.Equal(t, "b", evidence[1].ID)
	assert.Equal(t, "a", evidence[2].ID)

	// Fusion scores ride along untouched.
	assert.Equal(t, 0.1, evidence[0].FusionScore)
	for i := 1; i < len(evidence); i++ {
		assert.GreaterOrEqual(t, evidence[i-1].RerankScore, evidence[i].RerankScore)
	}
}

func TestRerankTruncatesAndAssignsRanks(t *testing.T) {
	candidates := []store.FusedCandidate{
		fusedCandidate("a", 0.9),
		fusedCandidate("b", 0.8),
		fusedCandidate("c", 0.7),
		fusedCandidate("d", 0.6),
	}
	scorer := &stubScorer{name: "primary", scores: []float64{0.4, 0.3, 0.2, 0.1}}
	reranker := newTestReranker(scorer, nil, 2)

	evidence, err := reranker.Rerank(context.Background(), "query", candidates)
	require.NoError(t, err)
	require.Len(t, evidence, 2)
	assert.Equal(t, 1, evidence[0].Rank)
	assert.Equal(t, 2, evidence[1].Rank)
	assert.Equal(t, "a", evidence[0].ID)
}

func TestRerankTiesKeepFusedOrder(t *testing.T) {
	candidates := []store.FusedCandidate{
		fusedCandidate("first", 0.9),
		fusedCandidate("second", 0.8),
	}
	scorer := &stubScorer{name: "primary", scores: []float64{0.5, 0.5}}
	reranker := newTestReranker(scorer, nil, 3)

	evidence, err := reranker.Rerank(context.Background(), "query", candidates)
	require.NoError(t, err)
	require.Len(t, evidence, 2)
	assert.Equal(t, "first", evidence[0].ID)
	assert.Equal(t, "second", evidence[1].ID)
}

func TestRerankFallsBackWhenPrimaryFails(t *testing.T) {
	candidates := []store.FusedCandidate{
		fusedCandidate("a", 0.9),
		fusedCandidate("b", 0.8),
	}
	primary := &stubScorer{name: "primary", err: errors.New("api unreachable")}
	fallback := &stubScorer{name: "fallback", scores: []float64{0.2, 0.8}}
	reranker := newTestReranker(primary, fallback, 3)

	evidence, err := reranker.Rerank(context.Background(), "query", candidates)
	require.NoError(t, err)
	require.Len(t, evidence, 2)
	assert.Equal(t, "b", evidence[0].ID)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRerankNoFallbackPropagatesError(t *testing.T) {
	primary := &stubScorer{name: "primary", err: errors.New("api unreachable")}
	reranker := newTestReranker(primary, nil, 3)

	_, err := reranker.Rerank(context.Background(), "query", []store.FusedCandidate{fusedCandidate("a", 0.9)})
	assert.Error(t, err)
}

func TestLexicalScorerOverlap(t *testing.T) {
	scorer := NewLexicalScorer()

	scores, err := scorer.Score(context.Background(), "pavement crack repair", []string{
		"pavement crack depth and repair procedure",
		"streetlight wiring standard",
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0], scores[1])
	assert.Equal(t, 1.0, scores[0])
	assert.Equal(t, 0.0, scores[1])
}

func TestLexicalScorerCJKBigrams(t *testing.T) {
	scorer := NewLexicalScorer()

	scores, err := scorer.Score(context.Background(), "路面裂缝", []string{
		"路面裂缝深度超过规定阈值",
		"照明设施维护要求",
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0], scores[1])
}

func TestLexicalScorerDeterministic(t *testing.T) {
	scorer := NewLexicalScorer()
	docs := []string{"pavement crack", "路面裂缝深度", "signage"}

	first, err := scorer.Score(context.Background(), "路面 crack", docs)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := scorer.Score(context.Background(), "路面 crack", docs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
