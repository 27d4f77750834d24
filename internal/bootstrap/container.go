package bootstrap

import (
	"context"
	"log"

	"trade-intel-be/internal/config"
	"trade-intel-be/internal/controller"
	"trade-intel-be/internal/pkg/logger"
	"trade-intel-be/internal/repository/implementation"
	"trade-intel-be/internal/repository/memory"
	"trade-intel-be/internal/repository/unitofwork"
	"trade-intel-be/internal/service"
	"trade-intel-be/internal/websocket"
	"trade-intel-be/pkg/chatstream"
	"trade-intel-be/pkg/detail"
	"trade-intel-be/pkg/embedding"
	"trade-intel-be/pkg/generation"
	"trade-intel-be/pkg/intent"
	"trade-intel-be/pkg/llm/factory"
	"trade-intel-be/pkg/retrieval"
	"trade-intel-be/pkg/token"

	pktNats "trade-intel-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	HsCodeController controller.IHsCodeController

	// Stream transports
	StreamHandler *websocket.StreamHandler

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService
	AuditService    service.IAuditService // nil when NATS is unavailable

	// Owned for graceful shutdown
	StreamPool *chatstream.Pool
	NatsPub    *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	streamLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.GeminiAPIKey,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize embedding provider: %v", err)
	}
	log.Printf("[INFO] Using embedding provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM provider: %v", err)
	}
	log.Printf("[INFO] Using LLM provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	tokenStore := token.NewStore(rdb, cfg.Chat.StreamTokenTTL)
	// Jobs only need to survive their token TTL plus the processing window.
	jobRegistry := memory.NewJobRegistry(cfg.Chat.StreamTokenTTL + cfg.Chat.JobTimeout)

	// 5. Chat pipeline stages
	hsCodeRepo := implementation.NewHsCodeRepository(db)
	embeddingRepo := implementation.NewHsCodeEmbeddingRepository(db)

	classifier := intent.NewClassifier(llmProvider, cfg.Chat.ClassifyTimeout)
	retriever := retrieval.NewRetriever(
		embeddingProvider,
		embeddingRepo,
		hsCodeRepo,
		cfg.Chat.RetrieveTimeout,
		cfg.Chat.MaxCandidates,
		cfg.Chat.MinScore,
	)
	generator := generation.NewGenerator(llmProvider)
	preparer := detail.NewPreparer(hsCodeRepo, streamLogger, cfg.Chat.DetailTimeout)
	historyService := service.NewHistoryService(uowFactory, sysLogger)

	streamPool := chatstream.NewPool(cfg.Chat.WorkerPoolSize)
	orchestrator := chatstream.NewOrchestrator(
		tokenStore,
		jobRegistry,
		classifier,
		retriever,
		generator,
		preparer,
		historyService,
		streamPool,
		streamLogger,
		chatstream.Config{
			JobTimeout:       cfg.Chat.JobTimeout,
			BookmarkMinScore: cfg.Chat.BookmarkMinScore,
		},
	)

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Ai.IndexTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ai.IndexTopic,
		uowFactory,
		embeddingProvider,
	)

	var eventPublisher service.IEventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	chatService := service.NewChatService(uowFactory, jobRegistry, tokenStore, eventPublisher, sysLogger)
	hsCodeService := service.NewHsCodeService(uowFactory, publisherService, sysLogger)

	var auditService service.IAuditService
	if natsSub != nil {
		auditService = service.NewAuditService(natsSub, sysLogger)
	}

	return &Container{
		ChatController:   controller.NewChatController(chatService, orchestrator),
		HsCodeController: controller.NewHsCodeController(hsCodeService),
		StreamHandler:    websocket.NewStreamHandler(orchestrator, streamLogger),
		ConsumerService:  consumerService,
		AuditService:     auditService,
		StreamPool:       streamPool,
		NatsPub:          natsPub,
	}
}
