package main

import (
	"context"
	"log"
	"time"

	"trade-intel-be/internal/config"
	"trade-intel-be/internal/entity"
	"trade-intel-be/internal/repository/specification"
	"trade-intel-be/internal/repository/unitofwork"
	"trade-intel-be/pkg/database"
	"trade-intel-be/pkg/embedding"
	"trade-intel-be/pkg/utils"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

type seedCode struct {
	Code        string
	Name        string
	Chapter     string
	Description string
}

// A small starter catalog so a fresh install can answer classification
// questions immediately. Real deployments import the full tariff schedule.
var starterCatalog = []seedCode{
	{"0808.10", "Apples, fresh", "08", "Fresh apples, whether or not for industrial processing."},
	{"0808.30", "Pears, fresh", "08", "Fresh pears, including perry pears."},
	{"0901.21", "Coffee, roasted, not decaffeinated", "09", "Roasted coffee retaining its caffeine content."},
	{"1006.30", "Rice, semi-milled or wholly milled", "10", "Semi-milled or wholly milled rice, whether or not polished or glazed."},
	{"2203.00", "Beer made from malt", "22", "Beer made from malt, including ale, stout and porter."},
	{"6109.10", "T-shirts, of cotton, knitted", "61", "T-shirts, singlets and other vests of cotton, knitted or crocheted."},
	{"8471.30", "Portable digital computers", "84", "Portable automatic data processing machines weighing not more than 10 kg, such as laptops, notebooks and tablets."},
	{"8517.12", "Smartphones", "85", "Telephones for cellular networks or for other wireless networks."},
	{"8703.80", "Motor cars, electric", "87", "Motor cars with only electric motor for propulsion."},
	{"9503.00", "Toys", "95", "Tricycles, scooters, dolls, other toys and puzzles of all kinds."},
}

func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	embedder, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.GeminiAPIKey,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
	)
	if err != nil {
		log.Fatalf("Failed to initialize embedding provider: %v", err)
	}

	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(db)

	color.Cyan("Seeding HS code catalog (%d records)", len(starterCatalog))

	for _, sc := range starterCatalog {
		if err := seedOne(ctx, uowFactory, embedder, sc); err != nil {
			color.Red("  %s failed: %v", sc.Code, err)
			continue
		}
	}

	color.Green("Seeding completed")
}

func seedOne(ctx context.Context, uowFactory unitofwork.RepositoryFactory, embedder embedding.EmbeddingProvider, sc seedCode) error {
	uow := uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.HsCodeRepository().FindOne(ctx, specification.ByCode{Code: sc.Code})
	if err != nil {
		return err
	}
	if existing != nil {
		color.Yellow("  %s already exists, skipping", sc.Code)
		return nil
	}

	hsCode := &entity.HsCode{
		Id:          uuid.New(),
		Code:        sc.Code,
		Name:        sc.Name,
		Description: sc.Description,
		Chapter:     sc.Chapter,
		CreatedAt:   time.Now(),
	}

	// Embed inline rather than through the queue: the indexing consumer
	// lives in the REST process and its bus is in-memory.
	document := "HS Code: " + sc.Code + "\nName: " + sc.Name + "\nChapter: " + sc.Chapter + "\n\n" + sc.Description
	chunks := utils.SplitText(document, 1500, 200)

	embeddings := make([]*entity.HsCodeEmbedding, 0, len(chunks))
	for _, chunk := range chunks {
		res, err := embedder.Generate(chunk, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return err
		}
		embeddings = append(embeddings, &entity.HsCodeEmbedding{
			Id:             uuid.New(),
			Document:       chunk,
			EmbeddingValue: res.Embedding.Values,
			HsCodeId:       hsCode.Id,
			CreatedAt:      time.Now(),
		})
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.HsCodeRepository().Create(ctx, hsCode); err != nil {
		return err
	}
	if err := uow.HsCodeEmbeddingRepository().CreateBulk(ctx, embeddings); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	color.Green("  %s %s (%d chunks)", sc.Code, sc.Name, len(embeddings))
	return nil
}
