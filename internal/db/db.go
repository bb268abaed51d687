package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"
)

// Document is one chunk row. The table name is chosen per store, see
// ModelTableExpr in Store.
type Document struct {
	bun.BaseModel `bun:"alias:d"`
	ID            int64           `bun:"id,pk,autoincrement"`
	Content       string          `bun:"content,notnull"`
	Source        string          `bun:"source"`
	PageNumber    int             `bun:"page_number"`
	ChunkID       int             `bun:"chunk_id"`
	StartIndex    int             `bun:"start_index"`
	Embedding     pgvector.Vector `bun:"embedding,notnull"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver. Nothing is
// dialed until the first query.
func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	switch dbConfig.Driver {
	case "pq":
		return sql.Open("postgres", dbConfig.DSN)
	case "pgdriver", "":
		opts := []pgdriver.Option{pgdriver.WithDSN(dbConfig.DSN)}
		if dbConfig.Password != "" {
			opts = append(opts, pgdriver.WithPassword(dbConfig.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", dbConfig.Driver)
	}
}

// Store keeps the chunks of one document in its own table, which Close drops.
type Store struct {
	db    *bun.DB
	table string
}

// NewStore creates the pgvector extension if needed and an empty table for
// vectors of vectorSize dimensions.
func NewStore(ctx context.Context, db *bun.DB, table string, vectorSize int) (*Store, error) {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return nil, fmt.Errorf("failed to enable pgvector: %w", err)
	}
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ? (
	id bigserial PRIMARY KEY,
	content text NOT NULL,
	source text,
	page_number integer,
	chunk_id integer,
	start_index integer,
	embedding vector(?) NOT NULL
)`, bun.Ident(table), vectorSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	zerolog.Ctx(ctx).Debug().Str("table", table).Int("vector_size", vectorSize).Msg("Created vector table")
	return &Store{db: db, table: table}, nil
}

func (s *Store) Add(ctx context.Context, chunks []models.ChunkEmbedding) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]Document, 0, len(chunks))
	for _, ce := range chunks {
		docs = append(docs, Document{
			Content:    ce.Content,
			Source:     ce.Source,
			PageNumber: ce.PageNumber,
			ChunkID:    ce.ChunkID,
			StartIndex: ce.StartIndex,
			Embedding:  pgvector.NewVector(ce.Embedding),
		})
	}
	_, err := s.db.NewInsert().Model(&docs).ModelTableExpr("?", bun.Ident(s.table)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store documents: %w", err)
	}
	return nil
}

// Search orders by cosine distance, nearest first, and breaks ties by
// insertion order.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	var docs []Document
	err := s.db.NewSelect().
		Model(&docs).
		ModelTableExpr("? AS d", bun.Ident(s.table)).
		Column("id", "content", "source", "page_number", "chunk_id", "start_index").
		OrderExpr("embedding <=> ?", pgvector.NewVector(embedding)).
		OrderExpr("id").
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, d.Chunk())
	}
	return chunks, nil
}

// drop table
func (s *Store) Close() error {
	_, err := s.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS ?", bun.Ident(s.table))
	return err
}

func (d Document) Chunk() models.Chunk {
	return models.Chunk{
		Content:    d.Content,
		Source:     d.Source,
		PageNumber: d.PageNumber,
		ChunkID:    d.ChunkID,
		StartIndex: d.StartIndex,
	}
}
