package implementation

import (
	"context"
	"errors"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/mapper"
	"trade-intel-be/internal/model"
	"trade-intel-be/internal/repository/contract"
	"trade-intel-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type HsCodeEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.HsCodeEmbeddingMapper
}

func NewHsCodeEmbeddingRepository(db *gorm.DB) contract.HsCodeEmbeddingRepository {
	return &HsCodeEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewHsCodeEmbeddingMapper(),
	}
}

func (r *HsCodeEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *HsCodeEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.HsCodeEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

func (r *HsCodeEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.HsCodeEmbedding) error {
	models := make([]*model.HsCodeEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = r.mapper.ToModel(e)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *HsCodeEmbeddingRepositoryImpl) DeleteByHsCodeId(ctx context.Context, hsCodeId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("hs_code_id = ?", hsCodeId).Delete(&model.HsCodeEmbedding{}).Error
}

func (r *HsCodeEmbeddingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HsCodeEmbedding, error) {
	var m model.HsCodeEmbedding
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// SearchSimilarWithScore returns embeddings with cosine similarity scores,
// filtered by threshold. Cosine distance in pgvector is 1 - cosine_similarity.
func (r *HsCodeEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredHsCodeEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.HsCodeEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("hs_code_embeddings").
		Select("hs_code_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Joins("JOIN hs_codes ON hs_codes.id = hs_code_embeddings.hs_code_id").
		Where("hs_code_embeddings.deleted_at IS NULL").
		Where("hs_codes.deleted_at IS NULL").
		Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredHsCodeEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredHsCodeEmbedding{
			Embedding:  r.mapper.ToEntity(&res.HsCodeEmbedding),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
