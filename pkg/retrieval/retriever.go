// Package retrieval finds HS code candidates semantically related to a user
// query. Retrieval is best effort: the answer pipeline treats an empty
// candidate list the same whether nothing matched or the search failed.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/repository/contract"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/pkg/embedding"

	"github.com/google/uuid"
)

// Candidate is an HS code hydrated with catalog metadata and scored
// against the query.
type Candidate struct {
	Code        string
	Name        string
	Description string
	Score       float64
}

type Retriever struct {
	embedder      embedding.EmbeddingProvider
	embeddingRepo contract.HsCodeEmbeddingRepository
	hsCodeRepo    contract.HsCodeRepository
	timeout       time.Duration
	maxCandidates int
	minScore      float64
}

func NewRetriever(
	embedder embedding.EmbeddingProvider,
	embeddingRepo contract.HsCodeEmbeddingRepository,
	hsCodeRepo contract.HsCodeRepository,
	timeout time.Duration,
	maxCandidates int,
	minScore float64,
) *Retriever {
	return &Retriever{
		embedder:      embedder,
		embeddingRepo: embeddingRepo,
		hsCodeRepo:    hsCodeRepo,
		timeout:       timeout,
		maxCandidates: maxCandidates,
		minScore:      minScore,
	}
}

// Retrieve embeds the query and returns the top candidates above the score
// threshold, deduplicated by HS code (highest score wins). Result order is
// by descending score.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	embResp, err := r.embedder.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// Over-fetch so post-dedupe we can still fill maxCandidates.
	scored, err := r.embeddingRepo.SearchSimilarWithScore(ctx, embResp.Embedding.Values, r.maxCandidates*3, r.minScore)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(scored) == 0 {
		return nil, nil
	}

	// Several embedding rows may point at one HS code (one per indexed
	// document); keep the best score per code id, preserving score order.
	bestScore := make(map[uuid.UUID]float64)
	var order []uuid.UUID
	for _, s := range scored {
		id := s.Embedding.HsCodeId
		if _, seen := bestScore[id]; !seen {
			bestScore[id] = s.Similarity
			order = append(order, id)
		}
	}
	if len(order) > r.maxCandidates {
		order = order[:r.maxCandidates]
	}

	codes, err := r.hsCodeRepo.FindAll(ctx, specification.ByIDs{IDs: order})
	if err != nil {
		return nil, fmt.Errorf("hydrating candidates: %w", err)
	}

	byId := make(map[uuid.UUID]*entity.HsCode, len(codes))
	for _, c := range codes {
		byId[c.Id] = c
	}

	candidates := make([]Candidate, 0, len(order))
	for _, id := range order {
		hc, ok := byId[id]
		if !ok {
			// Embedding row outlived its catalog entry; skip it.
			continue
		}
		candidates = append(candidates, Candidate{
			Code:        hc.Code,
			Name:        hc.Name,
			Description: hc.Description,
			Score:       bestScore[id],
		})
	}
	return candidates, nil
}
