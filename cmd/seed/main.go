package main

import (
	"context"
	"flag"
	"log"
	"os"

	"city-inspect-be/internal/config"
	"city-inspect-be/internal/repository/implementation"
	"city-inspect-be/pkg/database"
	"city-inspect-be/pkg/embedding"

	"github.com/fatih/color"
)

// Seeds the reference corpus: handbook documents become text chunks,
// case photos become image references. Both land in document_chunks
// under their collection name, embedded up front so the serving path
// never writes.
func main() {
	corpusDir := flag.String("corpus", "corpus", "directory holding handbook/ and cases/ subdirectories")
	reset := flag.Bool("reset", false, "delete both collections before seeding")
	flag.Parse()

	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	repo := implementation.NewDocumentChunkRepository(db)

	// 3. Build the Embedding Provider (same selection as the server)
	var embedder embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embedder = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.CallTimeout)
	default:
		embedder = embedding.NewArkProvider(cfg.Keys.Ark, cfg.Ai.ArkBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.CallTimeout)
	}

	ctx := context.Background()

	if *reset {
		log.Println("Resetting collections...")
		for _, collection := range []string{cfg.Retrieval.TextCollection, cfg.Retrieval.ImageCollection} {
			if err := repo.DeleteCollection(ctx, collection); err != nil {
				log.Fatalf("Error: Failed to reset collection '%s': %v", collection, err)
			}
		}
	}

	// 4. Seed Handbook Chunks
	color.Yellow("\n[1/2] Seeding handbook chunks...")
	textCount, err := SeedHandbook(ctx, repo, embedder, *corpusDir, cfg.Retrieval.TextCollection)
	if err != nil {
		color.Red("Handbook seeding failed: %v", err)
		os.Exit(1)
	}
	color.Green("Seeded %d handbook chunks into '%s'", textCount, cfg.Retrieval.TextCollection)

	// 5. Seed Case Images
	color.Yellow("\n[2/2] Seeding case images...")
	imageCount, err := SeedCaseImages(ctx, repo, embedder, *corpusDir, cfg.Retrieval.ImageCollection)
	if err != nil {
		color.Red("Case image seeding failed: %v", err)
		os.Exit(1)
	}
	color.Green("Seeded %d case images into '%s'", imageCount, cfg.Retrieval.ImageCollection)

	color.Cyan("\n✅ Corpus seeding completed.")
}
