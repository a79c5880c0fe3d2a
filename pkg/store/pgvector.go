// Package store persists documents and their embedded chunks in Postgres
// with the pgvector extension, and runs filtered similarity searches.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

type StoreConfig struct {
	ConnString string
	VectorDim  int
}

type Store struct {
	config StoreConfig
	pool   *pgxpool.Pool
	log    *zap.Logger
}

func NewWithConfig(ctx context.Context, config StoreConfig, log *zap.Logger) (*Store, error) {
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // OpenAI text-embedding-3-small
	}
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{config: config, pool: pool, log: log}
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createDocuments := `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			owner_id TEXT,
			case_id TEXT,
			title TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			status TEXT NOT NULL,
			total_chunks INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.pool.Exec(ctx, createDocuments); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	createChunks := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			chunk_text TEXT NOT NULL,
			embedding vector(%d),
			owner_id TEXT,
			case_id TEXT,
			doc_type TEXT NOT NULL,
			source_title TEXT,
			section TEXT,
			UNIQUE (document_id, chunk_index)
		)`, s.config.VectorDim)
	if _, err := s.pool.Exec(ctx, createChunks); err != nil {
		return fmt.Errorf("failed to create document_chunks table: %w", err)
	}

	createIndex := `
		CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
		ON document_chunks
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`
	if _, err := s.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create embedding index: %w", err)
	}

	return nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, owner_id, case_id, title, doc_type, status, total_chunks)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, 0)`,
		doc.ID, doc.OwnerID, doc.CaseID, sanitizeUTF8(doc.Title), doc.Type, doc.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var (
		doc             models.Document
		ownerID, caseID *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, case_id, title, doc_type, status, total_chunks, created_at, updated_at
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &ownerID, &caseID, &doc.Title, &doc.Type, &doc.Status,
		&doc.TotalChunks, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "store.get", "document %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	if ownerID != nil {
		doc.OwnerID = *ownerID
	}
	if caseID != nil {
		doc.CaseID = *caseID
	}
	return &doc, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	// Chunks go with the document via ON DELETE CASCADE.
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// validTransition encodes the forward-only status machine:
// pending -> processing -> completed | failed. Terminal states never resume.
func validTransition(from, to models.DocumentStatus) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusProcessing || to == models.StatusFailed
	case models.StatusProcessing:
		return to == models.StatusCompleted || to == models.StatusFailed
	default:
		return false
	}
}

func (s *Store) SetStatus(ctx context.Context, id string, from, to models.DocumentStatus) error {
	if !validTransition(from, to) {
		return apperr.Newf(apperr.KindConflict, "store.status",
			"invalid status transition %s -> %s", from, to)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindConflict, "store.status",
			"document %s is not in status %s", id, from)
	}
	return nil
}

func (s *Store) SetCompleted(ctx context.Context, id string, totalChunks int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET status = $1, total_chunks = $2, updated_at = now()
		WHERE id = $3 AND status = $4`,
		models.StatusCompleted, totalChunks, id, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindConflict, "store.status",
			"document %s is not in status %s", id, models.StatusProcessing)
	}
	return nil
}

// InsertChunks writes one batch of chunks in a single transaction. Callers
// split chunk lists into batches and decide what a failed batch means.
func (s *Store) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, chunk_text, embedding, owner_id, case_id, doc_type, source_title, section)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''))`

	for _, chunk := range chunks {
		_, err := tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.DocumentID,
			chunk.ChunkIndex,
			sanitizeUTF8(chunk.Text),
			pgvector.NewVector(chunk.Embedding),
			chunk.Metadata.OwnerID,
			chunk.Metadata.CaseID,
			chunk.Metadata.DocumentType,
			sanitizeUTF8(chunk.Metadata.SourceTitle),
			chunk.Metadata.Section,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunk batch: %w", err)
	}
	return nil
}

// SearchChunks runs a cosine nearest-neighbor query restricted to chunks
// visible under opts. Similarity is 1 - distance; rows below the threshold
// are excluded and ties are broken by ascending chunk_index.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, opts types.SearchOptions) ([]models.SearchResult, error) {
	args := []interface{}{pgvector.NewVector(embedding)}

	var scope []string
	if opts.OwnerID != "" {
		args = append(args, opts.OwnerID)
		scope = append(scope, fmt.Sprintf("owner_id = $%d", len(args)))
	}
	if len(opts.CaseIDs) > 0 {
		args = append(args, opts.CaseIDs)
		scope = append(scope, fmt.Sprintf("case_id = ANY($%d)", len(args)))
	}
	if opts.IncludeSharedCorpus {
		args = append(args, string(models.DocumentTypeKnowledgeBase))
		scope = append(scope, fmt.Sprintf("doc_type = $%d", len(args)))
	}

	where := "TRUE"
	if len(scope) > 0 {
		where = "(" + strings.Join(scope, " OR ") + ")"
	}

	args = append(args, opts.MinSimilarity)
	thresholdArg := len(args)
	args = append(args, opts.Limit)
	limitArg := len(args)

	query := fmt.Sprintf(`
		SELECT id, document_id, chunk_index, chunk_text,
			owner_id, case_id, doc_type, source_title, section,
			1 - (embedding <=> $1) AS similarity
		FROM document_chunks
		WHERE %s AND 1 - (embedding <=> $1) >= $%d
		ORDER BY embedding <=> $1 ASC, chunk_index ASC
		LIMIT $%d`, where, thresholdArg, limitArg)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.KindVectorSearch, "store.search",
			fmt.Errorf("failed to query chunks: %w", err))
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var (
			r                               models.SearchResult
			ownerID, caseID, title, section *string
		)
		err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.ChunkIndex, &r.Text,
			&ownerID, &caseID, &r.Metadata.DocumentType, &title, &section, &r.Similarity)
		if err != nil {
			return nil, apperr.New(apperr.KindVectorSearch, "store.search",
				fmt.Errorf("failed to scan row: %w", err))
		}
		if ownerID != nil {
			r.Metadata.OwnerID = *ownerID
		}
		if caseID != nil {
			r.Metadata.CaseID = *caseID
		}
		if title != nil {
			r.Metadata.SourceTitle = *title
		}
		if section != nil {
			r.Metadata.Section = *section
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.KindVectorSearch, "store.search", err)
	}
	return results, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
