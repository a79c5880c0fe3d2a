// Package ingest runs the document pipeline: extract text, chunk it, embed
// the chunks, and persist them with forward-only status tracking.
package ingest

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

type ServiceConfig struct {
	// BatchSize is the number of chunks per embedding call and per
	// persistence transaction.
	BatchSize int
	// Workers bounds concurrent embedding calls for one document.
	Workers int
}

// Request describes one document to ingest. Content is the raw uploaded
// bytes; Filename is only a format hint.
type Request struct {
	DocumentID string
	OwnerID    string
	CaseID     string
	Title      string
	Type       models.DocumentType
	Content    []byte
	Filename   string
}

// Service runs ingestions. Reingesting an id replaces the previous document;
// concurrent ingestions of the same id conflict instead of interleaving.
type Service struct {
	config    ServiceConfig
	extractor types.Extractor
	chunker   types.Chunker
	embedder  types.Embedder
	store     types.DocumentStore
	log       *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewService(extractor types.Extractor, chunker types.Chunker, embedder types.Embedder, store types.DocumentStore, config ServiceConfig, log *zap.Logger) *Service {
	if config.BatchSize == 0 {
		config.BatchSize = 50
	}
	if config.Workers == 0 {
		config.Workers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		config:    config,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		log:       log,
		inFlight:  make(map[string]struct{}),
	}
}

// Ingest runs the full pipeline for one document and reports how many chunks
// were persisted. Extraction and chunking failures mark the document failed;
// a partially persisted document completes with the count that survived.
func (s *Service) Ingest(ctx context.Context, req Request) (*models.IngestResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	docID := req.DocumentID
	if docID == "" && req.CaseID != "" {
		docID = req.CaseID
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	if !s.acquire(docID) {
		return nil, apperr.Newf(apperr.KindConflict, "ingest",
			"document %s is already being ingested", docID)
	}
	defer s.release(docID)

	// Reingestion replaces whatever a previous run left behind.
	if err := s.store.DeleteDocument(ctx, docID); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	doc := &models.Document{
		ID:      docID,
		OwnerID: req.OwnerID,
		CaseID:  req.CaseID,
		Title:   req.Title,
		Type:    req.Type,
		Status:  models.StatusPending,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.store.SetStatus(ctx, docID, models.StatusPending, models.StatusProcessing); err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(req.Content, req.Filename)
	if err != nil {
		s.fail(ctx, docID)
		return nil, err
	}

	texts := s.chunker.Chunk(text)
	if len(texts) == 0 {
		s.fail(ctx, docID)
		return nil, apperr.Newf(apperr.KindChunking, "ingest",
			"document %s produced no chunks", docID)
	}

	chunks := s.buildChunks(docID, req, texts)
	if err := s.embedAll(ctx, chunks); err != nil {
		s.fail(ctx, docID)
		return nil, err
	}

	persisted := s.persist(ctx, docID, chunks)
	if persisted == 0 {
		s.fail(ctx, docID)
		return nil, apperr.Newf(apperr.KindInternal, "ingest",
			"no chunks of document %s could be persisted", docID)
	}

	if err := s.store.SetCompleted(ctx, docID, persisted); err != nil {
		return nil, err
	}

	s.log.Info("document ingested",
		zap.String("document_id", docID),
		zap.Int("chunks", persisted),
		zap.Int("skipped", len(chunks)-persisted))
	return &models.IngestResult{
		DocumentID:  docID,
		TotalChunks: persisted,
		Status:      models.StatusCompleted,
	}, nil
}

func validate(req Request) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperr.Newf(apperr.KindValidation, "ingest", "title is required")
	}
	if !req.Type.Valid() {
		return apperr.Newf(apperr.KindValidation, "ingest", "unknown document type %q", req.Type)
	}
	if req.Type == models.DocumentTypeUserCase && req.OwnerID == "" {
		return apperr.Newf(apperr.KindValidation, "ingest", "owner is required for case documents")
	}
	if len(req.Content) == 0 {
		return apperr.Newf(apperr.KindValidation, "ingest", "document content is empty")
	}
	return nil
}

func (s *Service) acquire(docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[docID]; busy {
		return false
	}
	s.inFlight[docID] = struct{}{}
	return true
}

func (s *Service) release(docID string) {
	s.mu.Lock()
	delete(s.inFlight, docID)
	s.mu.Unlock()
}

// buildChunks assigns gapless 0..n-1 indices in source order and stamps every
// chunk with the metadata search filters rely on.
func (s *Service) buildChunks(docID string, req Request, texts []string) []models.Chunk {
	meta := models.ChunkMetadata{
		OwnerID:      req.OwnerID,
		CaseID:       req.CaseID,
		DocumentType: req.Type,
		SourceTitle:  req.Title,
	}
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			ChunkIndex: i,
			Text:       text,
			Metadata:   meta,
		}
	}
	return chunks
}

// embedAll fills in embeddings batch by batch with bounded concurrency. Any
// batch failure aborts the whole document: chunks without vectors are not
// searchable and a half-embedded document is worse than a failed one.
func (s *Service) embedAll(ctx context.Context, chunks []models.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for start := 0; start < len(chunks); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(chunks))
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := s.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}
	return g.Wait()
}

// persist writes chunks in sequential batches. A failed batch is logged and
// skipped; later batches still get their chance.
func (s *Service) persist(ctx context.Context, docID string, chunks []models.Chunk) int {
	persisted := 0
	for start := 0; start < len(chunks); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(chunks))
		batch := chunks[start:end]

		if err := s.store.InsertChunks(ctx, batch); err != nil {
			s.log.Warn("chunk batch skipped",
				zap.String("document_id", docID),
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			continue
		}
		persisted += len(batch)
	}
	return persisted
}

// fail moves the document to failed, tolerating races where another writer
// already moved it.
func (s *Service) fail(ctx context.Context, docID string) {
	if err := s.store.SetStatus(ctx, docID, models.StatusProcessing, models.StatusFailed); err != nil {
		s.log.Warn("failed to mark document failed",
			zap.String("document_id", docID), zap.Error(err))
	}
}
