package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"city-inspect-be/internal/entity"
	"city-inspect-be/internal/pkg/imaging"
	"city-inspect-be/internal/repository/contract"
	"city-inspect-be/pkg/embedding"
	"city-inspect-be/pkg/utils"
)

const (
	seedBatchSize = 50
	chunkSize     = 500
	chunkOverlap  = 50
)

// SeedHandbook splits every .md/.txt file under <corpus>/handbook into
// paragraph chunks, embeds them, and bulk-inserts the collection.
func SeedHandbook(ctx context.Context, repo contract.DocumentChunkRepository, embedder embedding.EmbeddingProvider, corpusDir, collection string) (int, error) {
	handbookDir := filepath.Join(corpusDir, "handbook")
	entries, err := os.ReadDir(handbookDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warn: No handbook directory at %s, skipping", handbookDir)
			return 0, nil
		}
		return 0, err
	}

	var chunks []*entity.DocumentChunk
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".md" && ext != ".txt" {
			continue
		}

		path := filepath.Join(handbookDir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}

		for i, paragraph := range splitParagraphs(string(raw)) {
			vec, err := embedder.EmbedText(ctx, paragraph)
			if err != nil {
				return 0, fmt.Errorf("embed %s#%d: %w", e.Name(), i, err)
			}
			chunks = append(chunks, &entity.DocumentChunk{
				Collection: collection,
				Content:    paragraph,
				Embedding:  vec.Values,
				SourcePath: path,
				Metadata: map[string]interface{}{
					"source": e.Name(),
					"chunk":  i,
				},
			})
		}
		log.Printf("Embedded %s", e.Name())
	}

	return insertBatched(ctx, repo, chunks)
}

// SeedCaseImages embeds every supported image under <corpus>/cases. A
// sidecar .txt file with the same basename supplies the case
// description; the filename stands in when there is none.
func SeedCaseImages(ctx context.Context, repo contract.DocumentChunkRepository, embedder embedding.EmbeddingProvider, corpusDir, collection string) (int, error) {
	casesDir := filepath.Join(corpusDir, "cases")
	entries, err := os.ReadDir(casesDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warn: No cases directory at %s, skipping", casesDir)
			return 0, nil
		}
		return 0, err
	}

	var chunks []*entity.DocumentChunk
	for _, e := range entries {
		if e.IsDir() || !imaging.AllowedExtension(e.Name()) {
			continue
		}

		path := filepath.Join(casesDir, e.Name())
		dataURI, err := imaging.FileToDataURI(path)
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", path, err)
		}

		vec, err := embedder.EmbedImage(ctx, dataURI)
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", e.Name(), err)
		}

		chunks = append(chunks, &entity.DocumentChunk{
			Collection: collection,
			Content:    caseDescription(path),
			Embedding:  vec.Values,
			SourcePath: path,
			Metadata: map[string]interface{}{
				"source": e.Name(),
			},
		})
		log.Printf("Embedded %s", e.Name())
	}

	return insertBatched(ctx, repo, chunks)
}

// splitParagraphs cuts text on blank lines, re-splits oversized
// paragraphs with overlap, and drops fragments too short to stand
// alone as evidence.
func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		p := strings.TrimSpace(block)
		if len([]rune(p)) < 10 {
			continue
		}
		out = append(out, utils.SplitText(p, chunkSize, chunkOverlap)...)
	}
	return out
}

func caseDescription(imagePath string) string {
	sidecar := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".txt"
	if raw, err := os.ReadFile(sidecar); err == nil {
		if desc := strings.TrimSpace(string(raw)); desc != "" {
			return desc
		}
	}
	return filepath.Base(imagePath)
}

func insertBatched(ctx context.Context, repo contract.DocumentChunkRepository, chunks []*entity.DocumentChunk) (int, error) {
	for start := 0; start < len(chunks); start += seedBatchSize {
		end := start + seedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := repo.CreateBulk(ctx, chunks[start:end]); err != nil {
			return start, err
		}
	}
	return len(chunks), nil
}
