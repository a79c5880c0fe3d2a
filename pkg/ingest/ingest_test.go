package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Extract(data []byte, filename string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(data), nil
}

// fixedChunker splits on blank lines, one chunk per paragraph.
type fixedChunker struct{}

func (fixedChunker) Chunk(text string) []string {
	var chunks []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, strings.TrimSpace(p))
		}
	}
	return chunks
}

type fakeEmbedder struct {
	mu       sync.Mutex
	failures int // batches to fail before succeeding
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()

	if fail {
		return nil, apperr.Newf(apperr.KindEmbedding, "fake", "embedding exhausted")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

// memStore is an in-memory DocumentStore that records transitions and
// optionally fails chosen insert batches.
type memStore struct {
	mu          sync.Mutex
	docs        map[string]*models.Document
	chunks      map[string][]models.Chunk
	transitions []string
	failBatches map[int]bool // fail the nth InsertChunks call (0-based)
	inserts     int
}

func newMemStore() *memStore {
	return &memStore{
		docs:        make(map[string]*models.Document),
		chunks:      make(map[string][]models.Chunk),
		failBatches: make(map[int]bool),
	}
}

func (m *memStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *memStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "memstore", "document %s not found", id)
	}
	copied := *doc
	return &copied, nil
}

func (m *memStore) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

func (m *memStore) SetStatus(ctx context.Context, id string, from, to models.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok || doc.Status != from {
		return apperr.Newf(apperr.KindConflict, "memstore", "document %s is not in status %s", id, from)
	}
	doc.Status = to
	m.transitions = append(m.transitions, fmt.Sprintf("%s->%s", from, to))
	return nil
}

func (m *memStore) SetCompleted(ctx context.Context, id string, totalChunks int) error {
	if err := m.SetStatus(ctx, id, models.StatusProcessing, models.StatusCompleted); err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[id].TotalChunks = totalChunks
	m.mu.Unlock()
	return nil
}

func (m *memStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.inserts
	m.inserts++
	if m.failBatches[call] {
		return errors.New("batch write failed")
	}
	for _, c := range chunks {
		m.chunks[c.DocumentID] = append(m.chunks[c.DocumentID], c)
	}
	return nil
}

func (m *memStore) SearchChunks(ctx context.Context, embedding []float32, opts types.SearchOptions) ([]models.SearchResult, error) {
	return nil, nil
}

func document(paragraphs int) []byte {
	var sb strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&sb, "Paragraph %d about the neighbour principle.\n\n", i)
	}
	return []byte(sb.String())
}

func request(content []byte) Request {
	return Request{
		DocumentID: "doc-1",
		OwnerID:    "owner-1",
		CaseID:     "case-1",
		Title:      "Donoghue v Stevenson",
		Type:       models.DocumentTypeUserCase,
		Content:    content,
		Filename:   "donoghue.txt",
	}
}

func newService(store *memStore, embedder *fakeEmbedder, batchSize int) *Service {
	return NewService(&fakeExtractor{}, fixedChunker{}, embedder, store, ServiceConfig{
		BatchSize: batchSize,
		Workers:   2,
	}, nil)
}

func TestIngest_HappyPath(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &fakeEmbedder{}, 2)

	result, err := svc.Ingest(context.Background(), request(document(5)))
	require.NoError(t, err)

	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, 5, result.TotalChunks)
	assert.Equal(t, models.StatusCompleted, result.Status)

	doc, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, 5, doc.TotalChunks)

	assert.Equal(t, []string{"pending->processing", "processing->completed"}, store.transitions)
}

func TestIngest_ChunkIndicesAreGapless(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &fakeEmbedder{}, 3)

	_, err := svc.Ingest(context.Background(), request(document(7)))
	require.NoError(t, err)

	chunks := store.chunks["doc-1"]
	require.Len(t, chunks, 7)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "owner-1", c.Metadata.OwnerID)
		assert.Equal(t, "case-1", c.Metadata.CaseID)
		assert.Equal(t, models.DocumentTypeUserCase, c.Metadata.DocumentType)
		assert.Equal(t, "Donoghue v Stevenson", c.Metadata.SourceTitle)
		assert.Equal(t, []float32{1, 2, 3}, c.Embedding)
	}
}

func TestIngest_ExtractionFailureMarksFailed(t *testing.T) {
	store := newMemStore()
	svc := NewService(
		&fakeExtractor{err: apperr.Newf(apperr.KindExtraction, "extract", "unreadable")},
		fixedChunker{}, &fakeEmbedder{}, store, ServiceConfig{}, nil)

	_, err := svc.Ingest(context.Background(), request(document(3)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindExtraction, apperr.KindOf(err))

	doc, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, doc.Status)
}

func TestIngest_EmbeddingFailureMarksFailed(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &fakeEmbedder{failures: 100}, 2)

	_, err := svc.Ingest(context.Background(), request(document(4)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(err))

	doc, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, doc.Status)
	assert.Empty(t, store.chunks["doc-1"])
}

func TestIngest_SkippedBatchStillCompletes(t *testing.T) {
	store := newMemStore()
	store.failBatches[1] = true // second persistence batch fails
	svc := newService(store, &fakeEmbedder{}, 2)

	result, err := svc.Ingest(context.Background(), request(document(6)))
	require.NoError(t, err)

	// Three batches of two; one skipped.
	assert.Equal(t, 4, result.TotalChunks)
	assert.Len(t, store.chunks["doc-1"], 4)

	doc, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, 4, doc.TotalChunks)
}

func TestIngest_AllBatchesFailingMarksFailed(t *testing.T) {
	store := newMemStore()
	store.failBatches[0] = true
	store.failBatches[1] = true
	svc := newService(store, &fakeEmbedder{}, 2)

	_, err := svc.Ingest(context.Background(), request(document(4)))
	require.Error(t, err)

	doc, err := store.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, doc.Status)
}

func TestIngest_ReingestReplacesDocument(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &fakeEmbedder{}, 10)

	_, err := svc.Ingest(context.Background(), request(document(5)))
	require.NoError(t, err)

	result, err := svc.Ingest(context.Background(), request(document(2)))
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalChunks)
	assert.Len(t, store.chunks["doc-1"], 2)
}

func TestIngest_ConcurrentSameDocumentConflicts(t *testing.T) {
	store := newMemStore()
	extractor := &blockingExtractor{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewService(extractor, fixedChunker{}, &fakeEmbedder{}, store, ServiceConfig{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Ingest(context.Background(), request(document(2)))
		done <- err
	}()
	<-extractor.started

	// The id is held by the in-flight run, so a second ingest conflicts.
	_, err := svc.Ingest(context.Background(), request(document(2)))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	close(extractor.release)
	require.NoError(t, <-done)
}

type blockingExtractor struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExtractor) Extract(data []byte, filename string) (string, error) {
	close(b.started)
	<-b.release
	return string(data), nil
}

func TestIngest_ValidationErrors(t *testing.T) {
	svc := newService(newMemStore(), &fakeEmbedder{}, 10)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing title", func(r *Request) { r.Title = " " }},
		{"bad type", func(r *Request) { r.Type = "scroll" }},
		{"case without owner", func(r *Request) { r.OwnerID = "" }},
		{"empty content", func(r *Request) { r.Content = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(document(2))
			tt.mutate(&req)

			_, err := svc.Ingest(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestIngest_GeneratesDocumentID(t *testing.T) {
	store := newMemStore()
	svc := newService(store, &fakeEmbedder{}, 10)

	req := request(document(2))
	req.DocumentID = ""
	req.CaseID = ""

	result, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, result.DocumentID)
}
