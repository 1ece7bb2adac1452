package embedding

import (
	"context"

	"city-inspect-be/pkg/store"
)

// Vector is a fixed-length embedding tagged with the modality of its
// input and a source identifier. Immutable once produced.
type Vector struct {
	Values   []float32      `json:"values"`
	Modality store.Modality `json:"modality"`
	Source   string         `json:"source,omitempty"`
}

// EmbeddingProvider generates embeddings for text and, where the
// backing model supports it, images. Image input is a URL or a base64
// data URI. Both calls are long-latency boundaries and must only run
// inside worker execution.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) (*Vector, error)
	EmbedImage(ctx context.Context, image string) (*Vector, error)
}
