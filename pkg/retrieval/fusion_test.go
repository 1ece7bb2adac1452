package retrieval

import (
	"testing"

	"city-inspect-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, modality store.Modality, distance float64) store.Candidate {
	return store.Candidate{
		ID:       id,
		Modality: modality,
		Content:  "chunk " + id,
		Distance: distance,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TopK = 3
	return cfg
}

func TestFuseTextOnly(t *testing.T) {
	textHits := []store.Candidate{
		candidate("a", store.ModalityText, 0.10),
		candidate("b", store.ModalityText, 0.20),
		candidate("c", store.ModalityText, 0.30),
		candidate("d", store.ModalityText, 0.40),
	}

	fused := Fuse(textHits, nil, testConfig())

	require.Len(t, fused, 3)
	assert.Equal(t, "a", fused[0].ID)
	assert.Equal(t, "b", fused[1].ID)
	assert.Equal(t, "c", fused[2].ID)

	for _, f := range fused {
		assert.True(t, f.FromText)
		assert.False(t, f.FromImage)
		assert.Zero(t, f.ImageScore)
	}

	// Closest hit normalizes to 1.0 and is scaled by the text weight.
	assert.InDelta(t, 0.5, fused[0].FusionScore, 1e-9)
}

func TestFuseDeduplicatesAcrossPaths(t *testing.T) {
	textHits := []store.Candidate{
		candidate("a", store.ModalityText, 0.10),
		candidate("b", store.ModalityText, 0.50),
	}
	imageHits := []store.Candidate{
		candidate("a", store.ModalityImage, 0.30),
		candidate("z", store.ModalityImage, 0.60),
	}

	fused := Fuse(textHits, imageHits, testConfig())

	require.Len(t, fused, 3)

	seen := make(map[string]bool)
	for _, f := range fused {
		assert.False(t, seen[f.ID], "id %s returned twice", f.ID)
		seen[f.ID] = true
	}

	// "a" was found by both paths: best score on each, provenance of
	// both recorded, combined weighted sum.
	assert.Equal(t, "a", fused[0].ID)
	assert.True(t, fused[0].FromText)
	assert.True(t, fused[0].FromImage)
	assert.InDelta(t, 1.0, fused[0].FusionScore, 1e-9)
	assert.InDelta(t, 0.10, fused[0].Distance, 1e-9)
}

func TestFuseOrderIsNonIncreasing(t *testing.T) {
	textHits := []store.Candidate{
		candidate("a", store.ModalityText, 0.1),
		candidate("b", store.ModalityText, 0.2),
		candidate("c", store.ModalityText, 0.3),
	}
	imageHits := []store.Candidate{
		candidate("d", store.ModalityImage, 0.15),
		candidate("b", store.ModalityImage, 0.25),
	}

	cfg := testConfig()
	cfg.TopK = 10
	fused := Fuse(textHits, imageHits, cfg)

	for i := 1; i < len(fused); i++ {
		assert.GreaterOrEqual(t, fused[i-1].FusionScore, fused[i].FusionScore)
	}
}

func TestFuseTieBreaksByDistanceThenInputOrder(t *testing.T) {
	// Both hits at the same distance normalize to 1.0 on their own
	// path, so their weighted scores tie exactly.
	textHits := []store.Candidate{candidate("far", store.ModalityText, 0.8)}
	imageHits := []store.Candidate{candidate("near", store.ModalityImage, 0.2)}

	fused := Fuse(textHits, imageHits, testConfig())

	require.Len(t, fused, 2)
	assert.Equal(t, "near", fused[0].ID, "tie should break on shorter path-local distance")

	// Exact ties on score and distance preserve input order: text
	// before image.
	textHits = []store.Candidate{candidate("t1", store.ModalityText, 0.4)}
	imageHits = []store.Candidate{candidate("i1", store.ModalityImage, 0.4)}

	fused = Fuse(textHits, imageHits, testConfig())
	require.Len(t, fused, 2)
	assert.Equal(t, "t1", fused[0].ID)
	assert.Equal(t, "i1", fused[1].ID)
}

func TestFuseDeterministic(t *testing.T) {
	textHits := []store.Candidate{
		candidate("a", store.ModalityText, 0.1),
		candidate("b", store.ModalityText, 0.2),
		candidate("c", store.ModalityText, 0.2),
	}
	imageHits := []store.Candidate{
		candidate("c", store.ModalityImage, 0.1),
		candidate("d", store.ModalityImage, 0.2),
	}

	first := Fuse(textHits, imageHits, testConfig())
	for i := 0; i < 10; i++ {
		again := Fuse(textHits, imageHits, testConfig())
		require.Equal(t, first, again)
	}
}

func TestFuseBothPathsEmpty(t *testing.T) {
	fused := Fuse(nil, nil, testConfig())
	assert.Empty(t, fused)
	assert.NotNil(t, fused)
}

func TestNormalizeDistancesUniformPath(t *testing.T) {
	hits := []store.Candidate{
		candidate("a", store.ModalityText, 0.5),
		candidate("b", store.ModalityText, 0.5),
	}
	scores := normalizeDistances(hits)
	require.Len(t, scores, 2)
	assert.Equal(t, 1.0, scores[0])
	assert.Equal(t, 1.0, scores[1])
}
