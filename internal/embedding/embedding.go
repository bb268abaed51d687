package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"
)

// NewOllamaEmbedder creates an embedder for models.EmbeddingModel served by
// the Ollama instance at llmConfig.BaseURL.
func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": models.EmbeddingModel,
	}).Msg("Creating embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(models.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// GenerateEmbedding embeds the chunks one at a time, in order. The first
// failure aborts the whole run with a *models.IndexError.
func GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	logger := zerolog.Ctx(ctx)
	if len(chunks) == 0 {
		logger.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	chunkEmbeddings := make([]models.ChunkEmbedding, 0, len(chunks))
	for i, chunk := range chunks {
		embedding, err := embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return nil, &models.IndexError{ChunkID: chunk.Key(), Err: err}
		}
		if len(embedding) == 0 {
			return nil, &models.IndexError{ChunkID: chunk.Key(), Err: errors.New("empty embedding")}
		}
		chunkEmbeddings = append(chunkEmbeddings, models.ChunkEmbedding{
			Chunk:     chunk,
			Embedding: embedding,
		})
		logger.Debug().Int("chunk", i+1).Int("total", len(chunks)).Str("id", chunk.Key()).Msg("Embedded chunk")
	}

	return chunkEmbeddings, nil
}
