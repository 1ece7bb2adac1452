package retrieval

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"city-inspect-be/internal/entity"
	"city-inspect-be/internal/repository/contract"
	"city-inspect-be/pkg/embedding"
	"city-inspect-be/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	textErr  error
	imageErr error
}

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) (*embedding.Vector, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	return &embedding.Vector{Values: []float32{1, 0, 0}, Modality: store.ModalityText, Source: text}, nil
}

func (f *fakeEmbedder) EmbedImage(_ context.Context, image string) (*embedding.Vector, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &embedding.Vector{Values: []float32{0, 1, 0}, Modality: store.ModalityImage, Source: image}, nil
}

type fakeChunkRepository struct {
	mu           sync.Mutex
	byCollection map[string][]*contract.ScoredChunk
	searchErr    map[string]error
	lastLimit    int
}

func (f *fakeChunkRepository) Create(context.Context, *entity.DocumentChunk) error {
	return nil
}

func (f *fakeChunkRepository) CreateBulk(context.Context, []*entity.DocumentChunk) error {
	return nil
}

func (f *fakeChunkRepository) SearchNearest(_ context.Context, collection string, _ []float32, limit int) ([]*contract.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.searchErr[collection]; err != nil {
		return nil, err
	}
	f.lastLimit = limit
	hits := f.byCollection[collection]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeChunkRepository) Count(context.Context, string) (int64, error) {
	return 0, nil
}

func (f *fakeChunkRepository) DeleteCollection(context.Context, string) error {
	return nil
}

func scoredChunk(content string, distance float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Chunk: &entity.DocumentChunk{
			Id:      uuid.New(),
			Content: content,
		},
		Distance: distance,
	}
}

func newTestEngine(repo contract.DocumentChunkRepository, embedder embedding.EmbeddingProvider) *Engine {
	return NewEngine(embedder, repo, log.New(io.Discard, "", 0))
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	engine := newTestEngine(&fakeChunkRepository{}, &fakeEmbedder{})

	_, err := engine.Search(context.Background(), "", "", DefaultConfig())
	assert.ErrorIs(t, err, store.ErrEmptyQuery)
}

func TestSearchFusesBothPaths(t *testing.T) {
	cfg := DefaultConfig()
	repo := &fakeChunkRepository{
		byCollection: map[string][]*contract.ScoredChunk{
			cfg.TextCollection: {
				scoredChunk("pavement crack depth threshold", 0.12),
				scoredChunk("signage installation standard", 0.31),
			},
			cfg.ImageCollection: {
				scoredChunk("case: collapsed manhole cover", 0.22),
			},
		},
	}
	engine := newTestEngine(repo, &fakeEmbedder{})

	fused, err := engine.Search(context.Background(), "路面裂缝", "data:image/jpeg;base64,xxxx", cfg)
	require.NoError(t, err)
	require.Len(t, fused, 3)

	var fromText, fromImage int
	for _, f := range fused {
		if f.FromText {
			fromText++
		}
		if f.FromImage {
			fromImage++
		}
	}
	assert.Equal(t, 2, fromText)
	assert.Equal(t, 1, fromImage)
}

func TestSearchOversamplesEachPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopK = 5
	cfg.OversampleFactor = 2

	repo := &fakeChunkRepository{
		byCollection: map[string][]*contract.ScoredChunk{
			cfg.TextCollection: {scoredChunk("chunk", 0.1)},
		},
	}
	engine := newTestEngine(repo, &fakeEmbedder{})

	_, err := engine.Search(context.Background(), "query", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestSearchTextPathFailureIsFatal(t *testing.T) {
	engine := newTestEngine(&fakeChunkRepository{}, &fakeEmbedder{textErr: errors.New("provider down")})

	_, err := engine.Search(context.Background(), "query", "", DefaultConfig())
	assert.ErrorIs(t, err, store.ErrRetrievalFailure)
}

func TestSearchImagePathFailureDegradesToTextOnly(t *testing.T) {
	cfg := DefaultConfig()
	repo := &fakeChunkRepository{
		byCollection: map[string][]*contract.ScoredChunk{
			cfg.TextCollection: {
				scoredChunk("pothole repair procedure", 0.2),
			},
		},
	}
	engine := newTestEngine(repo, &fakeEmbedder{imageErr: errors.New("vision model unavailable")})

	fused, err := engine.Search(context.Background(), "坑洼", "data:image/png;base64,yyyy", cfg)
	require.NoError(t, err)
	require.Len(t, fused, 1)
	assert.True(t, fused[0].FromText)
	assert.False(t, fused[0].FromImage)
}

func TestSearchEmptyCollectionsYieldEmptyResult(t *testing.T) {
	engine := newTestEngine(&fakeChunkRepository{}, &fakeEmbedder{})

	fused, err := engine.Search(context.Background(), "query", "", DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, fused)
}
