package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeStore returns canned search results and ignores everything else.
type fakeStore struct {
	results []models.SearchResult
	gotOpts types.SearchOptions
}

func (f *fakeStore) CreateDocument(ctx context.Context, doc *models.Document) error { return nil }
func (f *fakeStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return nil, apperr.Newf(apperr.KindNotFound, "fake", "no document")
}
func (f *fakeStore) DeleteDocument(ctx context.Context, id string) error { return nil }
func (f *fakeStore) SetStatus(ctx context.Context, id string, from, to models.DocumentStatus) error {
	return nil
}
func (f *fakeStore) SetCompleted(ctx context.Context, id string, totalChunks int) error { return nil }
func (f *fakeStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error      { return nil }
func (f *fakeStore) SearchChunks(ctx context.Context, embedding []float32, opts types.SearchOptions) ([]models.SearchResult, error) {
	f.gotOpts = opts
	return f.results, nil
}

func result(id string, index int, similarity float64) models.SearchResult {
	return models.SearchResult{
		ChunkID:    id,
		ChunkIndex: index,
		Text:       "text " + id,
		Similarity: similarity,
		Metadata:   models.ChunkMetadata{SourceTitle: "Donoghue v Stevenson"},
	}
}

func TestSearch_AppliesDefaults(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(&fakeEmbedder{}, store, ServiceConfig{}, nil)

	_, err := svc.Search(context.Background(), "negligence", types.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, store.gotOpts.Limit)
	assert.Equal(t, 0.3, store.gotOpts.MinSimilarity)
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeStore{}, ServiceConfig{}, nil)

	_, err := svc.Search(context.Background(), "  \t ", types.SearchOptions{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSearch_EmptyCorpusYieldsEmptyResult(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeStore{}, ServiceConfig{}, nil)

	results, err := svc.Search(context.Background(), "estoppel", types.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_FiltersSortsAndLimits(t *testing.T) {
	store := &fakeStore{results: []models.SearchResult{
		result("a", 3, 0.91),
		result("b", 1, 0.15), // below threshold
		result("c", 7, 0.95),
		result("d", 2, 0.91), // ties with a, lower index wins
		result("e", 0, 0.40),
	}}
	svc := NewService(&fakeEmbedder{}, store, ServiceConfig{}, nil)

	results, err := svc.Search(context.Background(), "duty of care", types.SearchOptions{
		Limit:         3,
		MinSimilarity: 0.3,
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "c", results[0].ChunkID)
	assert.Equal(t, "d", results[1].ChunkID)
	assert.Equal(t, "a", results[2].ChunkID)
}

func TestSearch_EmbedFailurePropagates(t *testing.T) {
	embedder := &fakeEmbedder{err: apperr.Newf(apperr.KindEmbedding, "llm.embed", "bad vector")}
	svc := NewService(embedder, &fakeStore{}, ServiceConfig{}, nil)

	_, err := svc.Search(context.Background(), "consideration", types.SearchOptions{})
	require.Error(t, err)
	assert.Equal(t, apperr.KindEmbedding, apperr.KindOf(err))
}

func TestFormatContext_AttributesSources(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeStore{}, ServiceConfig{}, nil)

	results := []models.SearchResult{
		{
			Text:     "The manufacturer owes a duty of care.",
			Metadata: models.ChunkMetadata{SourceTitle: "Donoghue v Stevenson", Section: "Holding"},
		},
		{
			Text:     "The neighbour principle extends liability.",
			Metadata: models.ChunkMetadata{SourceTitle: "Negligence Notes"},
		},
	}

	got := svc.FormatContext(results, 0)

	assert.Contains(t, got, "[Source 1: Donoghue v Stevenson (Holding)]\nThe manufacturer owes a duty of care.")
	assert.Contains(t, got, "[Source 2: Negligence Notes]\nThe neighbour principle extends liability.")
	assert.Equal(t, 2, strings.Count(got, "[Source"))
}

func TestFormatContext_TruncatesAtBlockBoundary(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeStore{}, ServiceConfig{}, nil)

	results := []models.SearchResult{
		{Text: strings.Repeat("a", 100), Metadata: models.ChunkMetadata{SourceTitle: "One"}},
		{Text: strings.Repeat("b", 100), Metadata: models.ChunkMetadata{SourceTitle: "Two"}},
		{Text: strings.Repeat("c", 100), Metadata: models.ChunkMetadata{SourceTitle: "Three"}},
	}

	got := svc.FormatContext(results, 250)

	// Only whole blocks appear: the third would overflow the budget.
	assert.Contains(t, got, "[Source 1: One]")
	assert.Contains(t, got, "[Source 2: Two]")
	assert.NotContains(t, got, "Three")
	assert.NotContains(t, got, "ccc")
	assert.LessOrEqual(t, len(got), 250)
}

func TestFormatContext_EmptyResults(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, &fakeStore{}, ServiceConfig{}, nil)
	assert.Equal(t, "", svc.FormatContext(nil, 0))
}
