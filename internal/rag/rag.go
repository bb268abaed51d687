package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-qa/internal/embedding"
	"pdf-qa/internal/helper"
	"pdf-qa/internal/models"
)

// DefaultTopK is how many chunks a retrieval returns when no k is given.
const DefaultTopK = 4

// Store holds embedded chunks and answers nearest-neighbour queries.
// Implementations: chromemdb.VectorDBManager and db.Store.
type Store interface {
	Add(ctx context.Context, chunks []models.ChunkEmbedding) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error)
	Close() error
}

// StoreFactory returns a new, empty store.
type StoreFactory func(ctx context.Context) (Store, error)

// Index is a searchable set of embedded chunks from one document.
type Index struct {
	store    Store
	embedder embeddings.Embedder
	k        int
}

// BuildIndex embeds every chunk and inserts it into store with diagnostic
// output suppressed. It either returns a complete index or a
// *models.IndexError, never a partially filled one; closing store on failure
// is left to the caller that created it.
func BuildIndex(ctx context.Context, embedder embeddings.Embedder, store Store, chunks []models.Chunk, k int) (*Index, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	err := helper.SuppressOutput(ctx, func(ctx context.Context) error {
		chunkEmbeddings, err := embedding.GenerateEmbedding(ctx, embedder, chunks)
		if err != nil {
			return err
		}
		if err := store.Add(ctx, chunkEmbeddings); err != nil {
			return &models.IndexError{Err: err}
		}
		return nil
	})
	if err != nil {
		var indexErr *models.IndexError
		if !errors.As(err, &indexErr) {
			err = &models.IndexError{Err: err}
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int("chunks", len(chunks)).Msg("Built vector index")
	return &Index{store: store, embedder: embedder, k: k}, nil
}

// Retrieve returns the k chunks most similar to query, most similar first.
// k <= 0 uses the index default.
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	if k <= 0 {
		k = i.k
	}
	queryEmbedding, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	chunks, err := i.store.Search(ctx, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	return chunks, nil
}

// Close releases the underlying store.
func (i *Index) Close() error {
	return i.store.Close()
}
