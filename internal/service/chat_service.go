package service

import (
	"context"
	"fmt"
	"time"

	"trade-intel-be/internal/dto"
	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/internal/repository/memory"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/internal/repository/unitofwork"
	"trade-intel-be/pkg/events"

	"github.com/google/uuid"
)

// IChatService owns job initiation and the session CRUD around the stream.
type IChatService interface {
	StartChat(ctx context.Context, userId *uuid.UUID, request *dto.StartChatRequest) (*dto.StartChatResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
}

// ITokenIssuer issues single-use stream tokens. Satisfied by token.Store.
type ITokenIssuer interface {
	Issue(ctx context.Context, jobId uuid.UUID) (string, time.Time, error)
}

// IEventPublisher publishes lifecycle events to the bus. Satisfied by
// nats.Publisher; nil disables publishing.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *memory.JobRegistry
	tokens     ITokenIssuer
	publisher  IEventPublisher
	log        logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	registry *memory.JobRegistry,
	tokens ITokenIssuer,
	publisher IEventPublisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		registry:   registry,
		tokens:     tokens,
		publisher:  publisher,
		log:        log,
	}
}

// StartChat registers a new chat job and hands back the single-use stream
// token that authorizes exactly one streaming session for it. Identity comes
// from the verified JWT, never from the request body.
func (s *chatService) StartChat(ctx context.Context, userId *uuid.UUID, request *dto.StartChatRequest) (*dto.StartChatResponse, error) {
	job := entity.NewChatJob(request.Message, request.SessionId, userId)

	streamToken, expiresAt, err := s.tokens.Issue(ctx, job.Id)
	if err != nil {
		return nil, fmt.Errorf("issuing stream token: %w", err)
	}
	job.TokenExpiry = expiresAt
	s.registry.Save(job)

	if s.publisher != nil {
		ev := events.NewEvent(events.TypeChatJobCreated, map[string]interface{}{
			"job_id":        job.Id.String(),
			"authenticated": job.IsAuthenticated(),
		})
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn("chat", "job created event not published", map[string]interface{}{
				"job_id": job.Id.String(),
				"error":  err.Error(),
			})
		}
	}

	return &dto.StartChatResponse{
		JobId:       job.Id,
		StreamToken: streamToken,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, sess := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:           sess.Id,
			Title:        sess.Title,
			MessageCount: sess.MessageCount,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
		})
	}

	return response, nil
}

func (s *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		response = append(response, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Content:   msg.Content,
			Analysis:  msg.Analysis,
			CreatedAt: msg.CreatedAt,
		})
	}

	return response, nil
}

func (s *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.SessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sess.Id); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sess.Id); err != nil {
		return err
	}

	return uow.Commit()
}
