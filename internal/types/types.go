package types

import (
	"context"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
)

// Core interfaces. Services accept these so callers can substitute fakes in
// tests instead of reaching for shared global clients.

// Extractor converts raw uploaded bytes into plain text.
type Extractor interface {
	Extract(data []byte, filename string) (string, error)
}

// Chunker splits cleaned text into ordered, overlapping chunk texts.
type Chunker interface {
	Chunk(text string) []string
}

// Embedder converts text into fixed-length vectors. EmbedBatch preserves
// input order: result i is the embedding of texts[i].
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchOptions restrict a similarity search to chunks visible to the
// caller. A chunk matches when it is owned by OwnerID, belongs to one of
// CaseIDs, or is part of the shared knowledge corpus (when included).
type SearchOptions struct {
	OwnerID             string
	CaseIDs             []string
	IncludeSharedCorpus bool
	Limit               int
	MinSimilarity       float64
}

// DocumentStore owns document rows, their status state machine, and chunk
// persistence.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	// SetStatus applies a forward-only transition and fails with a conflict
	// error when the document is not currently in the from state.
	SetStatus(ctx context.Context, id string, from, to models.DocumentStatus) error
	// SetCompleted moves processing -> completed and records the number of
	// chunks actually persisted.
	SetCompleted(ctx context.Context, id string, totalChunks int) error
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	SearchChunks(ctx context.Context, embedding []float32, opts SearchOptions) ([]models.SearchResult, error)
}

// Searcher is the retrieval surface the generation layer depends on.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]models.SearchResult, error)
}
