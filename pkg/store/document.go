package store

// Modality tags which retrieval path produced a vector or a candidate.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

// Candidate is a single vector-search hit from one retrieval path.
// Distance is path-local (cosine distance) and is NOT comparable across
// paths until fusion normalizes it.
type Candidate struct {
	ID         string                 `json:"id"`
	Modality   Modality               `json:"modality"`
	Content    string                 `json:"content"`
	SourcePath string                 `json:"source_path,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Distance   float64                `json:"distance"`
}

// FusedCandidate is a candidate after dual-path fusion. TextScore and
// ImageScore are the per-path normalized relevance scores; a candidate
// found by only one path keeps 0 for the other. FusionScore is the
// weighted combination the fused list is ordered by.
type FusedCandidate struct {
	Candidate
	FusionScore float64 `json:"fusion_score"`
	TextScore   float64 `json:"text_score"`
	ImageScore  float64 `json:"image_score"`
	FromText    bool    `json:"from_text"`
	FromImage   bool    `json:"from_image"`
}

// EvidenceItem is a fused candidate after the pairwise rerank pass.
// Rank starts at 1 and the list is non-increasing by RerankScore.
// The fusion score survives as metadata only; it does not affect order.
type EvidenceItem struct {
	FusedCandidate
	Rank        int     `json:"rank"`
	RerankScore float64 `json:"rerank_score"`
}
