package llm

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

type EmbedderConfig struct {
	// Dimensions is the expected vector length; 0 disables the check.
	Dimensions int
	// MaxAttempts bounds retries of transient failures.
	MaxAttempts int
	// RateLimit is outbound calls per second to the embedding endpoint.
	RateLimit float64
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// Embedder turns text into fixed-length vectors via the backend. Transient
// failures are retried with exponential backoff; configuration failures
// propagate immediately.
type Embedder struct {
	config  EmbedderConfig
	backend Backend
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewEmbedder(backend Backend, config EmbedderConfig, log *zap.Logger) *Embedder {
	if config.MaxAttempts == 0 {
		config.MaxAttempts = apperr.DefaultMaxAttempts
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5.0
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		config:  config,
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     log,
	}
}

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one upstream call, preserving order: result i
// is the embedding of texts[i].
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	err := apperr.Retry(ctx, e.config.MaxAttempts, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		if err := e.limiter.Wait(callCtx); err != nil {
			return err
		}

		result, err := e.backend.CreateEmbedding(callCtx, texts)
		if err != nil {
			kind := apperr.KindOf(err)
			e.log.Warn("embedding call failed",
				zap.String("kind", kind.String()),
				zap.Int("batch_size", len(texts)),
				zap.Error(err))
			return apperr.New(kind, "llm.embed", err)
		}

		if err := e.validate(result, len(texts)); err != nil {
			return err
		}
		vectors = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *Embedder) validate(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return apperr.Newf(apperr.KindEmbedding, "llm.embed",
			"embedding count mismatch: sent %d texts, got %d vectors", want, len(vectors))
	}
	for i, vec := range vectors {
		if e.config.Dimensions > 0 && len(vec) != e.config.Dimensions {
			return apperr.Newf(apperr.KindEmbedding, "llm.embed",
				"embedding %d has %d dimensions, want %d", i, len(vec), e.config.Dimensions)
		}
		for _, v := range vec {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return apperr.Newf(apperr.KindEmbedding, "llm.embed",
					"embedding %d contains non-finite values", i)
			}
		}
	}
	return nil
}
