package implementation

import (
	"context"

	"city-inspect-be/internal/entity"
	"city-inspect-be/internal/mapper"
	"city-inspect-be/internal/model"
	"city-inspect-be/internal/repository/contract"
	"city-inspect-be/internal/repository/scope"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) Create(ctx context.Context, chunk *entity.DocumentChunk) error {
	m := r.mapper.ToModel(chunk)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chunk = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *DocumentChunkRepositoryImpl) SearchNearest(ctx context.Context, collection string, vector []float32, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector: embedding <=> query_vector.
	// Soft-deleted chunks never surface as evidence.
	type result struct {
		model.DocumentChunk
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, embedding <=> ? as distance", queryVector).
		Where("collection = ?", collection).
		Scopes(scope.ExcludeSoftDelete).
		Order("distance ASC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk:    r.mapper.ToEntity(&res.DocumentChunk),
			Distance: res.Distance,
		}
	}
	return scored, nil
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Where("collection = ?", collection).
		Count(&count).Error
	return count, err
}

func (r *DocumentChunkRepositoryImpl) DeleteCollection(ctx context.Context, collection string) error {
	return r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Delete(&model.DocumentChunk{}).Error
}
