package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trade-intel-be/internal/dto"
	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// IHsCodeService manages the HS code catalog. Every create queues the
// record for embedding so the retriever stays in sync with the catalog.
type IHsCodeService interface {
	CreateHsCode(ctx context.Context, request *dto.CreateHsCodeRequest) (*dto.HsCodeResponse, error)
	GetHsCodeByCode(ctx context.Context, code string) (*dto.HsCodeResponse, error)
	SearchHsCodes(ctx context.Context, query string, limit int) ([]*dto.HsCodeResponse, error)
	ReindexHsCode(ctx context.Context, id uuid.UUID) error
}

type hsCodeService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  IPublisherService
	log        logger.ILogger
}

func NewHsCodeService(
	uowFactory unitofwork.RepositoryFactory,
	publisher IPublisherService,
	log logger.ILogger,
) IHsCodeService {
	return &hsCodeService{
		uowFactory: uowFactory,
		publisher:  publisher,
		log:        log,
	}
}

func (s *hsCodeService) CreateHsCode(ctx context.Context, request *dto.CreateHsCodeRequest) (*dto.HsCodeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.HsCodeRepository().FindOne(ctx, specification.ByCode{Code: request.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing hs code: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("hs code %s already exists", request.Code)
	}

	hsCode := &entity.HsCode{
		Id:          uuid.New(),
		Code:        request.Code,
		Name:        request.Name,
		Description: request.Description,
		Chapter:     request.Chapter,
		CreatedAt:   time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.HsCodeRepository().Create(ctx, hsCode); err != nil {
		return nil, fmt.Errorf("failed to create hs code: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.queueIndexing(ctx, hsCode.Id)

	return toHsCodeResponse(hsCode), nil
}

func (s *hsCodeService) GetHsCodeByCode(ctx context.Context, code string) (*dto.HsCodeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	hsCode, err := uow.HsCodeRepository().FindOne(ctx, specification.ByCode{Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to get hs code: %w", err)
	}
	if hsCode == nil {
		return nil, fmt.Errorf("hs code not found: %s", code)
	}

	return toHsCodeResponse(hsCode), nil
}

func (s *hsCodeService) SearchHsCodes(ctx context.Context, query string, limit int) ([]*dto.HsCodeResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	hsCodes, err := uow.HsCodeRepository().FindAll(ctx,
		specification.HsCodeSearchQuery{Query: query},
		specification.OrderBy{Field: "code"},
		specification.Limit{Count: limit},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search hs codes: %w", err)
	}

	responses := make([]*dto.HsCodeResponse, 0, len(hsCodes))
	for _, hsCode := range hsCodes {
		responses = append(responses, toHsCodeResponse(hsCode))
	}
	return responses, nil
}

func (s *hsCodeService) ReindexHsCode(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	hsCode, err := uow.HsCodeRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return fmt.Errorf("failed to get hs code: %w", err)
	}
	if hsCode == nil {
		return fmt.Errorf("hs code not found: %s", id)
	}

	s.queueIndexing(ctx, hsCode.Id)
	return nil
}

// queueIndexing is best effort. A failed enqueue leaves the record
// searchable by code but invisible to semantic retrieval until reindexed.
func (s *hsCodeService) queueIndexing(ctx context.Context, hsCodeId uuid.UUID) {
	payload, err := json.Marshal(dto.PublishIndexHsCodeMessage{HsCodeId: hsCodeId})
	if err != nil {
		s.log.Warn("hscode", "failed to marshal index message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.log.Warn("hscode", "failed to queue hs code for indexing", map[string]interface{}{
			"hs_code_id": hsCodeId.String(),
			"error":      err.Error(),
		})
	}
}

func toHsCodeResponse(hsCode *entity.HsCode) *dto.HsCodeResponse {
	return &dto.HsCodeResponse{
		Id:          hsCode.Id,
		Code:        hsCode.Code,
		Name:        hsCode.Name,
		Description: hsCode.Description,
		Chapter:     hsCode.Chapter,
	}
}
