package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

// IEmbedder converts text into fixed-dimension vectors. EmbedBatch preserves
// input order and length; a single failed call fails the whole batch, partial
// results are never returned.
type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

type EmbedderConfig struct {
	Model     string
	Dimension int
	BatchSize int
	Pace      time.Duration
}

// Embedder batches provider calls and paces between batches to stay under the
// provider's rate limits. Calls within one batch fan out concurrently; batches
// themselves are sequential.
type Embedder struct {
	provider  IEmbedProvider
	model     string
	dimension int
	batchSize int
	limiter   *rate.Limiter
}

func NewEmbedder(provider IEmbedProvider, cfg EmbedderConfig) *Embedder {
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = 1536
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	pace := cfg.Pace
	if pace <= 0 {
		pace = 200 * time.Millisecond
	}
	return &Embedder{
		provider:  provider,
		model:     cfg.Model,
		dimension: dimension,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(pace), 1),
	}
}

func (e *Embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vec, err := e.provider.Embed(ctx, e.model, text, taskType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrEmbedding, err)
	}
	if len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: got dimension %d, want %d", appErr.ErrEmbedding, len(vec), e.dimension)
	}
	return vec, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	logger := logutil.GetLogger(ctx)
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", appErr.ErrEmbedding, err)
		}
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := e.Embed(gctx, texts[i], taskType)
				if err != nil {
					return err
				}
				out[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		logger.Debug("embedded batch",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(texts)),
		)
	}
	return out, nil
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

func (e *Embedder) ModelName() string {
	return e.model
}

// ZeroVector returns an all-zero vector of dimension d, used as the placeholder
// query for metadata-only index scans.
func ZeroVector(d int) []float32 {
	return make([]float32, d)
}
