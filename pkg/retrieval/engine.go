package retrieval

import (
	"context"
	"fmt"
	"log"
	"sync"

	"city-inspect-be/internal/repository/contract"
	"city-inspect-be/pkg/embedding"
	"city-inspect-be/pkg/store"
)

// Config encapsulates dual-path search parameters.
type Config struct {
	TopK             int
	OversampleFactor int
	TextWeight       float64
	ImageWeight      float64
	TextCollection   string
	ImageCollection  string
}

// DefaultConfig returns default search configuration.
func DefaultConfig() Config {
	return Config{
		TopK:             5,
		OversampleFactor: 2,
		TextWeight:       0.5,
		ImageWeight:      0.5,
		TextCollection:   "handbook_chunks",
		ImageCollection:  "case_images",
	}
}

// Engine runs the dual-path retrieval: the text path embeds the
// resolved query text against the handbook collection, the image path
// embeds the raw image against the case image collection, and the two
// ranked lists are fused into one.
type Engine struct {
	embedder embedding.EmbeddingProvider
	chunks   contract.DocumentChunkRepository
	logger   *log.Logger
}

func NewEngine(embedder embedding.EmbeddingProvider, chunks contract.DocumentChunkRepository, logger *log.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		chunks:   chunks,
		logger:   logger,
	}
}

// Search executes both paths and fuses the results. queryText and image
// are each optional but at least one must be present. An empty
// collection on one path degrades to an empty list for that path; both
// paths empty yields an empty fused result and no error. The image path
// additionally degrades to empty on provider failure (the text path is
// authoritative and its failures propagate).
func (e *Engine) Search(ctx context.Context, queryText string, image string, config Config) ([]store.FusedCandidate, error) {
	if queryText == "" && image == "" {
		return nil, store.ErrEmptyQuery
	}

	perPath := config.TopK * config.OversampleFactor
	if perPath <= 0 {
		perPath = config.TopK
	}

	var (
		wg        sync.WaitGroup
		textHits  []store.Candidate
		imageHits []store.Candidate
		textErr   error
	)

	if queryText != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			textHits, textErr = e.searchPath(ctx, store.ModalityText, queryText, config.TextCollection, perPath)
		}()
	}

	if image != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := e.searchPath(ctx, store.ModalityImage, image, config.ImageCollection, perPath)
			if err != nil {
				// Image path is best-effort, mirroring how the text
				// path carries the semantic signal.
				e.logger.Printf("[WARN] Image path search failed, continuing text-only: %v", err)
				return
			}
			imageHits = hits
		}()
	}

	wg.Wait()

	if textErr != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrRetrievalFailure, textErr)
	}

	e.logger.Printf("[DEBUG] Path results: text=%d image=%d", len(textHits), len(imageHits))

	return Fuse(textHits, imageHits, config), nil
}

func (e *Engine) searchPath(ctx context.Context, modality store.Modality, input string, collection string, limit int) ([]store.Candidate, error) {
	var (
		vec *embedding.Vector
		err error
	)
	if modality == store.ModalityImage {
		vec, err = e.embedder.EmbedImage(ctx, input)
	} else {
		vec, err = e.embedder.EmbedText(ctx, input)
	}
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	scored, err := e.chunks.SearchNearest(ctx, collection, vec.Values, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	candidates := make([]store.Candidate, 0, len(scored))
	for _, s := range scored {
		candidates = append(candidates, store.Candidate{
			ID:         s.Chunk.Id.String(),
			Modality:   modality,
			Content:    s.Chunk.Content,
			SourcePath: s.Chunk.SourcePath,
			Metadata:   s.Chunk.Metadata,
			Distance:   s.Distance,
		})
	}
	return candidates, nil
}
