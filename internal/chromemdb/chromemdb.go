package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-qa/internal/models"
)

// meta data will have source filename, page number, chunk id, start index
const (
	metaSource     = "source"
	metaPage       = "page"
	metaChunkID    = "chunk_id"
	metaStartIndex = "start_index"
)

// VectorDBManager encapsulates the chromem-go database operations for one
// in-memory collection.
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewVectorDBManager creates collectionName in db. embedFn is only used for
// documents or queries that arrive without an embedding.
func NewVectorDBManager(db *chromem.DB, collectionName string, embedFn chromem.EmbeddingFunc) (*VectorDBManager, error) {
	c, err := db.CreateCollection(collectionName, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %v", err)
	}
	return &VectorDBManager{db: db, collection: c}, nil
}

// EmbeddingFunc lets chromem embed with the same local model as the rest of
// the pipeline instead of its OpenAI default.
func EmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

// Add stores the embedded chunks.
func (m *VectorDBManager) Add(ctx context.Context, chunks []models.ChunkEmbedding) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, ce := range chunks {
		docs = append(docs, chromem.Document{
			ID:        ce.Key(),
			Content:   ce.Content,
			Metadata:  CreateMetadata(ce.Chunk),
			Embedding: ce.Embedding,
		})
	}
	zerolog.Ctx(ctx).Debug().Str("collection", m.collection.Name).Int("documents", len(docs)).Msg("Adding documents")
	return m.CreateDocs(ctx, docs)
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add document: %v", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (m *VectorDBManager) Count() int {
	return m.collection.Count()
}

// Search returns up to k chunks ordered by cosine similarity to embedding,
// most similar first. Ties are broken by chunk key so results are stable.
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error) {
	if len(embedding) == 0 {
		return nil, errors.New("query embedding must be provided")
	}
	// chromem rejects nResults outside 1..Count
	n := min(k, m.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	chunks := make([]models.Chunk, 0, len(results))
	for _, r := range results {
		chunk, err := ParseMetadata(r.Metadata)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", r.ID, err)
		}
		chunk.Content = r.Content
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Close deletes the collection.
func (m *VectorDBManager) Close() error {
	err := m.db.DeleteCollection(m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

func CreateMetadata(chunk models.Chunk) map[string]string {
	return map[string]string{
		metaSource:     chunk.Source,
		metaPage:       strconv.Itoa(chunk.PageNumber),
		metaChunkID:    strconv.Itoa(chunk.ChunkID),
		metaStartIndex: strconv.Itoa(chunk.StartIndex),
	}
}

// ParseMetadata is the inverse of CreateMetadata; the content is left empty.
func ParseMetadata(metadata map[string]string) (models.Chunk, error) {
	chunk := models.Chunk{Source: metadata[metaSource]}
	for key, dst := range map[string]*int{
		metaPage:       &chunk.PageNumber,
		metaChunkID:    &chunk.ChunkID,
		metaStartIndex: &chunk.StartIndex,
	} {
		v, err := strconv.Atoi(metadata[key])
		if err != nil {
			return models.Chunk{}, fmt.Errorf("invalid %s metadata: %w", key, err)
		}
		*dst = v
	}
	return chunk, nil
}
