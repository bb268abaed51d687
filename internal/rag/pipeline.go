package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"
	"pdf-qa/internal/parser"
)

// Pipeline turns a PDF on disk into a ready Chain.
type Pipeline struct {
	loader   parser.Loader
	splitter *parser.Splitter
	embedder embeddings.Embedder
	llm      llms.Model
	newStore StoreFactory
	topK     int
}

func NewPipeline(cfg *config.RAGConfig, embedder embeddings.Embedder, llm llms.Model, newStore StoreFactory) (*Pipeline, error) {
	splitter, err := parser.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("invalid splitter settings: %w", err)
	}
	return &Pipeline{
		loader:   parser.PDFLoader,
		splitter: splitter,
		embedder: embedder,
		llm:      llm,
		newStore: newStore,
		topK:     cfg.TopK,
	}, nil
}

// Build loads, splits and indexes the PDF at path. The returned chain owns a
// fresh store; on failure nothing is left behind.
func (p *Pipeline) Build(ctx context.Context, path string) (*Chain, error) {
	docs, err := p.loader.Load(path)
	if err != nil {
		return nil, err
	}

	chunks := p.splitter.SplitDocuments(docs)
	log.Info().Str("file", path).Int("pages", len(docs)).Int("chunks", len(chunks)).Msg("Split document")
	if len(chunks) == 0 {
		return nil, &models.IndexError{Err: errors.New("document has no extractable text")}
	}

	store, err := p.newStore(ctx)
	if err != nil {
		return nil, &models.IndexError{Err: fmt.Errorf("failed to create vector store: %w", err)}
	}

	index, err := BuildIndex(ctx, p.embedder, store, chunks, p.topK)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Error discarding vector store")
		}
		return nil, err
	}

	return NewChain(index, NewPrompt(), p.llm, models.InferenceModel), nil
}
