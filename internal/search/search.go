package search

import "context"

// ChunkMetadata identifies where a chunk came from in the document archive.
type ChunkMetadata struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Chunk is one retrieved piece of archive text with its relevance score.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"` // in [0, 1], higher is more relevant
}

// Searcher is the document search collaborator. Results are ordered by
// descending score; a query with no matches returns an empty slice, not
// an error.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Chunk, error)
}

// Embedder produces the vector representation of a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
