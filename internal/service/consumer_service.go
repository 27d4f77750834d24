package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trade-intel-be/internal/dto"
	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/internal/repository/unitofwork"
	"trade-intel-be/pkg/embedding"
	"trade-intel-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IConsumerService drains the HS code indexing queue: for each queued code
// it regenerates embedding rows so the semantic retriever can find it.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIndexHsCodeMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Indexing HS code %s", payload.HsCodeId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	hsCode, err := uow.HsCodeRepository().FindOne(ctx, specification.ByID{ID: payload.HsCodeId})
	if err != nil {
		log.Printf("[ERROR] Failed to get HS code %s: %v", payload.HsCodeId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if hsCode == nil {
		log.Printf("[ERROR] HS code not found: %s", payload.HsCodeId)
		msg.Ack() // Deleted since queued? Ack.
		return
	}

	document := fmt.Sprintf(`HS Code: %s
Name: %s
Chapter: %s

%s`,
		hsCode.Code,
		hsCode.Name,
		hsCode.Chapter,
		hsCode.Description,
	)

	// Descriptions are usually short, but chapter notes can run long.
	chunks := utils.SplitText(document, 1500, 200)

	var newEmbeddings []*entity.HsCodeEmbedding
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(chunk, "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Printf("[ERROR] Failed to generate embedding for chunk %d of HS code %s: %v", i, payload.HsCodeId, err)
			msg.Nack()
			return
		}

		newEmbeddings = append(newEmbeddings, &entity.HsCodeEmbedding{
			Id:             uuid.New(),
			Document:       chunk,
			EmbeddingValue: res.Embedding.Values,
			HsCodeId:       hsCode.Id,
			CreatedAt:      time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.HsCodeEmbeddingRepository().DeleteByHsCodeId(ctx, hsCode.Id); err != nil {
		log.Printf("[ERROR] Failed to delete old embeddings: %v", err)
		msg.Nack()
		return
	}

	if len(newEmbeddings) > 0 {
		if err := uow.HsCodeEmbeddingRepository().CreateBulk(ctx, newEmbeddings); err != nil {
			log.Printf("[ERROR] Failed to create bulk embeddings: %v", err)
			msg.Nack()
			return
		}
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] HS code indexed: %d chunks for %s", len(newEmbeddings), hsCode.Code)
	msg.Ack()
}
