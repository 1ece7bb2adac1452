package retrieval

import (
	"math"
	"sort"

	"city-inspect-be/pkg/store"
)

// Fuse merges the two path-local ranked lists into one list ordered by
// weighted fusion score. Deterministic: ties on fusion score fall back
// to the shorter path-local distance, then to stable input order (text
// hits before image hits). Output is capped at config.TopK and every id
// appears once.
func Fuse(textHits, imageHits []store.Candidate, config Config) []store.FusedCandidate {
	if len(textHits) == 0 && len(imageHits) == 0 {
		return []store.FusedCandidate{}
	}

	textScores := normalizeDistances(textHits)
	imageScores := normalizeDistances(imageHits)

	index := make(map[string]int)
	fused := make([]store.FusedCandidate, 0, len(textHits)+len(imageHits))

	for i, hit := range textHits {
		fused = append(fused, store.FusedCandidate{
			Candidate:   hit,
			TextScore:   textScores[i],
			FusionScore: textScores[i] * config.TextWeight,
			FromText:    true,
		})
		index[hit.ID] = len(fused) - 1
	}

	for i, hit := range imageHits {
		score := imageScores[i]
		if at, seen := index[hit.ID]; seen {
			// Retrieved by both paths: combine scores, record both
			// provenances, keep the shorter distance for tie-breaks.
			fused[at].ImageScore = score
			fused[at].FusionScore += score * config.ImageWeight
			fused[at].FromImage = true
			if hit.Distance < fused[at].Distance {
				fused[at].Distance = hit.Distance
			}
			continue
		}
		fused = append(fused, store.FusedCandidate{
			Candidate:   hit,
			ImageScore:  score,
			FusionScore: score * config.ImageWeight,
			FromImage:   true,
		})
		index[hit.ID] = len(fused) - 1
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].FusionScore != fused[j].FusionScore {
			return fused[i].FusionScore > fused[j].FusionScore
		}
		return fused[i].Distance < fused[j].Distance
	})

	if config.TopK > 0 && len(fused) > config.TopK {
		fused = fused[:config.TopK]
	}
	return fused
}

// normalizeDistances min-max maps one path's distances to [0,1]
// relevance scores, 1 being the closest hit. A path where every hit
// sits at the same distance scores 1 across the board.
func normalizeDistances(hits []store.Candidate) []float64 {
	if len(hits) == 0 {
		return nil
	}

	minD, maxD := math.Inf(1), math.Inf(-1)
	for _, h := range hits {
		if h.Distance < minD {
			minD = h.Distance
		}
		if h.Distance > maxD {
			maxD = h.Distance
		}
	}

	scores := make([]float64, len(hits))
	spread := maxD - minD
	for i, h := range hits {
		if spread == 0 {
			scores[i] = 1.0
			continue
		}
		scores[i] = (maxD - h.Distance) / spread
	}
	return scores
}
