package contract

import (
	"context"

	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
