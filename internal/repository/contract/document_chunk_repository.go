package contract

import (
	"context"

	"city-inspect-be/internal/entity"
)

// ScoredChunk pairs a chunk with its cosine distance to the query
// vector. Distance is path-local; fusion normalizes it later.
type ScoredChunk struct {
	Chunk    *entity.DocumentChunk
	Distance float64
}

// DocumentChunkRepository is the vector index surface the retrieval
// engine consumes. The write path belongs to ingestion and is only
// exercised by the seed tooling.
type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error

	// SearchNearest returns up to limit chunks of the collection ordered
	// by ascending cosine distance. An empty or missing collection
	// yields an empty slice, not an error.
	SearchNearest(ctx context.Context, collection string, vector []float32, limit int) ([]*ScoredChunk, error)

	Count(ctx context.Context, collection string) (int64, error)
	DeleteCollection(ctx context.Context, collection string) error
}
