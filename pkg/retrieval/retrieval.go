// Package retrieval embeds a query, finds the most similar stored chunks,
// and renders them into a bounded context block for prompting.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

type ServiceConfig struct {
	// DefaultLimit caps result counts when the caller does not set one.
	DefaultLimit int
	// MinSimilarity drops results below this floor when the caller does not
	// set a threshold.
	MinSimilarity float64
	// MaxContextChars bounds the rendered context block.
	MaxContextChars int
}

// Service is the retrieval half of the pipeline. It owns the query
// embedding, scope filtering, and result ordering; the store only has to
// return candidates.
type Service struct {
	config   ServiceConfig
	embedder types.Embedder
	store    types.DocumentStore
	log      *zap.Logger
}

func NewService(embedder types.Embedder, store types.DocumentStore, config ServiceConfig, log *zap.Logger) *Service {
	if config.DefaultLimit == 0 {
		config.DefaultLimit = 5
	}
	if config.MinSimilarity == 0 {
		config.MinSimilarity = 0.3
	}
	if config.MaxContextChars == 0 {
		config.MaxContextChars = 8000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{config: config, embedder: embedder, store: store, log: log}
}

// Search embeds query and returns chunks visible under opts, ordered by
// descending similarity with ties broken by ascending chunk index. An empty
// or fully-filtered corpus yields an empty result, not an error.
func (s *Service) Search(ctx context.Context, query string, opts types.SearchOptions) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Newf(apperr.KindValidation, "retrieval.search", "query is empty")
	}
	if opts.Limit <= 0 {
		opts.Limit = s.config.DefaultLimit
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = s.config.MinSimilarity
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.store.SearchChunks(ctx, embedding, opts)
	if err != nil {
		return nil, err
	}

	// The store already filters and orders, but enforce the contract here
	// too so it holds for every DocumentStore implementation.
	filtered := results[:0]
	for _, r := range results {
		if r.Similarity >= opts.MinSimilarity {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Similarity != filtered[j].Similarity {
			return filtered[i].Similarity > filtered[j].Similarity
		}
		return filtered[i].ChunkIndex < filtered[j].ChunkIndex
	})
	if len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}

	s.log.Debug("similarity search",
		zap.Int("results", len(filtered)),
		zap.Int("limit", opts.Limit),
		zap.Float64("min_similarity", opts.MinSimilarity))
	return filtered, nil
}

// FormatContext renders search results as attributed source blocks joined by
// blank lines. Truncation happens at block granularity: a block that would
// push the output past maxChars is dropped along with everything after it.
func (s *Service) FormatContext(results []models.SearchResult, maxChars int) string {
	if maxChars <= 0 {
		maxChars = s.config.MaxContextChars
	}

	var (
		blocks []string
		total  int
	)
	for i, r := range results {
		header := fmt.Sprintf("[Source %d: %s", i+1, r.Metadata.SourceTitle)
		if r.Metadata.Section != "" {
			header += fmt.Sprintf(" (%s)", r.Metadata.Section)
		}
		header += "]"
		block := header + "\n" + r.Text

		cost := len(block)
		if len(blocks) > 0 {
			cost += 2 // the joining blank line
		}
		if total+cost > maxChars {
			break
		}
		blocks = append(blocks, block)
		total += cost
	}
	return strings.Join(blocks, "\n\n")
}
