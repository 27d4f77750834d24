package service

import (
	"context"
	"encoding/json"
	"fmt"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/internal/repository/unitofwork"
	"trade-intel-be/pkg/llm"

	"github.com/google/uuid"
)

// IHistoryService persists chat exchanges for authenticated users. Anonymous
// jobs never touch it beyond the no-op check: unauthenticated chats leave no
// persisted trace anywhere.
type IHistoryService interface {
	Context(ctx context.Context, job *entity.ChatJob) ([]llm.Message, error)
	Record(ctx context.Context, job *entity.ChatJob) error
}

// contextWindow bounds how many prior messages ground a follow-up question.
const contextWindow = 20

type historyService struct {
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
}

func NewHistoryService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IHistoryService {
	return &historyService{
		uowFactory: uowFactory,
		log:        log,
	}
}

// Context loads the tail of the conversation as model messages, oldest
// first. Anonymous callers and fresh conversations get an empty history.
func (s *historyService) Context(ctx context.Context, job *entity.ChatJob) ([]llm.Message, error) {
	if !job.IsAuthenticated() || job.SessionId == nil {
		return nil, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: *job.SessionId},
		specification.UserOwnedBy{UserID: *job.UserId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Session id from the request doesn't belong to this user; treat
		// the conversation as fresh rather than leaking its existence.
		return nil, nil
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sess.Id},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{Count: contextWindow},
	)
	if err != nil {
		return nil, err
	}

	// Reverse back into chronological order.
	history := make([]llm.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		role := "user"
		if messages[i].Role == entity.ChatMessageRoleAssistant {
			role = "assistant"
		}
		history = append(history, llm.Message{
			Role:    role,
			Content: messages[i].Content,
		})
	}
	return history, nil
}

// Record writes the user question and assistant answer in one transaction,
// creating the session lazily on the first message of a conversation.
func (s *historyService) Record(ctx context.Context, job *entity.ChatJob) error {
	if !job.IsAuthenticated() {
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	sess, err := s.resolveSession(ctx, uow, job)
	if err != nil {
		return err
	}

	userMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sess.Id,
		Role:          entity.ChatMessageRoleUser,
		Content:       job.Query,
		CreatedAt:     job.CreatedAt,
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMsg); err != nil {
		return err
	}

	analysis, err := json.Marshal(job.Metadata)
	if err != nil {
		return fmt.Errorf("marshal analysis payload: %w", err)
	}
	assistantMsg := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sess.Id,
		Role:          entity.ChatMessageRoleAssistant,
		Content:       job.Answer,
		Analysis:      analysis,
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMsg); err != nil {
		return err
	}

	sess.MessageCount += 2
	if err := uow.ChatSessionRepository().Update(ctx, sess); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	// Point follow-up questions in this job's conversation at the session.
	job.SessionId = &sess.Id
	return nil
}

func (s *historyService) resolveSession(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.ChatJob) (*entity.ChatSession, error) {
	if job.SessionId != nil {
		sess, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: *job.SessionId},
			specification.UserOwnedBy{UserID: *job.UserId},
		)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
		s.log.Warn("history", "session not found for user, creating new one", map[string]interface{}{
			"session_id": job.SessionId.String(),
		})
	}

	sess := &entity.ChatSession{
		Id:     uuid.New(),
		UserId: *job.UserId,
		Title:  sessionTitle(job.Query),
	}
	if err := uow.ChatSessionRepository().Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// sessionTitle derives a display title from the opening question.
func sessionTitle(query string) string {
	const maxTitle = 60
	runes := []rune(query)
	if len(runes) <= maxTitle {
		return query
	}
	return string(runes[:maxTitle-3]) + "..."
}
