package contract

import (
	"context"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredHsCodeEmbedding pairs an embedding row with its cosine similarity
// against the query vector.
type ScoredHsCodeEmbedding struct {
	Embedding  *entity.HsCodeEmbedding
	Similarity float64
}

type HsCodeEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.HsCodeEmbedding) error
	CreateBulk(ctx context.Context, embeddings []*entity.HsCodeEmbedding) error
	DeleteByHsCodeId(ctx context.Context, hsCodeId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HsCodeEmbedding, error)
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredHsCodeEmbedding, error)
}
