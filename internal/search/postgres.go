package search

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	errx "github.com/primal-archive/server/internal/core/error"
	logx "github.com/primal-archive/server/pkg/logger"
)

const defaultScoreThreshold = 0.2

// PostgresStore implements Searcher over a pgvector table. Cosine
// distance is mapped to a [0, 1] relevance score and results below the
// threshold are dropped.
type PostgresStore struct {
	pool           *pgxpool.Pool
	embedder       Embedder
	scoreThreshold float64
}

func NewPostgresStore(pool *pgxpool.Pool, embedder Embedder) *PostgresStore {
	return &PostgresStore{
		pool:           pool,
		embedder:       embedder,
		scoreThreshold: defaultScoreThreshold,
	}
}

// WithScoreThreshold overrides the minimum relevance score kept in results.
func (s *PostgresStore) WithScoreThreshold(t float64) *PostgresStore {
	s.scoreThreshold = t
	return s
}

// EnsureSchema creates the chunk table and vector index if missing.
// The ingestion job that populates the table lives outside this service.
func (s *PostgresStore) EnsureSchema(ctx context.Context, dimensions int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS archive_chunks (
			chunk_id   bigserial PRIMARY KEY,
			doc_id     integer NOT NULL,
			name       text NOT NULL,
			category   text NOT NULL,
			content    text NOT NULL,
			embedding  vector(%d) NOT NULL
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS archive_chunks_embedding_idx
			ON archive_chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert embeds and stores one chunk.
func (s *PostgresStore) Upsert(ctx context.Context, meta ChunkMetadata, content string) error {
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return errx.WrapCollaborator(err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO archive_chunks (doc_id, name, category, content, embedding)
		 VALUES ($1, $2, $3, $4, $5)`,
		meta.ID, meta.Name, meta.Category, content, pgvector.NewVector(vec),
	)
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, query string, topK int) ([]Chunk, error) {
	if topK <= 0 {
		topK = 4
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errx.WrapCollaborator(err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT doc_id, name, category, content,
		        1 - (embedding <=> $1) AS score
		 FROM archive_chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(vec), topK,
	)
	if err != nil {
		return nil, errx.WrapCollaborator(err)
	}
	defer rows.Close()

	chunks, err := s.scanChunks(rows)
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("query", query).
		Int("top_k", topK).
		Int("results", len(chunks)).
		Msg("Vector search completed")

	return chunks, nil
}

func (s *PostgresStore) scanChunks(rows pgx.Rows) ([]Chunk, error) {
	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.Metadata.ID, &c.Metadata.Name, &c.Metadata.Category, &c.Content, &c.Score); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		// cosine score can drift marginally outside [0,1] on
		// denormalized vectors; clamp before thresholding
		if c.Score < 0 {
			c.Score = 0
		} else if c.Score > 1 {
			c.Score = 1
		}
		if c.Score < s.scoreThreshold {
			continue
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapCollaborator(err)
	}
	return chunks, nil
}

var _ Searcher = (*PostgresStore)(nil)
