package unitofwork

import (
	"context"

	"trade-intel-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	HsCodeRepository() contract.HsCodeRepository
	HsCodeEmbeddingRepository() contract.HsCodeEmbeddingRepository
}
