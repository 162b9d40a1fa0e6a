package maintain

import (
	"context"
	"math/rand/v2"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/vecstore"
)

const (
	maxSampleProbes = 10
	probeTopK       = 1000
)

// Sample is a best-effort subset of the index drawn by repeated randomized
// nearest-neighbor probes. Everything derived from it is an estimate scaled
// by TotalVectors/SampleSize, never an exact count.
type Sample struct {
	Records      []model.Match
	TotalVectors int
	ScaleFactor  float64
}

func (s *Sample) Size() int {
	return len(s.Records)
}

// drawSample probes the index with random vectors until the cap is reached,
// no new ids surface, or the probe budget runs out. The store has no scan
// primitive, so this is the only way to look at "all" records.
func (e *Engine) drawSample(ctx context.Context, limit int, filter map[string]any) (*Sample, error) {
	logger := logutil.GetLogger(ctx)
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	sample := &Sample{TotalVectors: stats.TotalVectorCount, ScaleFactor: 1}
	if stats.TotalVectorCount == 0 {
		return sample, nil
	}

	seen := make(map[string]struct{}, limit)
	for probe := 0; probe < maxSampleProbes && len(sample.Records) < limit; probe++ {
		topK := limit - len(sample.Records)
		if topK > probeTopK {
			topK = probeTopK
		}
		matches, err := e.store.Query(ctx, vecstore.QueryRequest{
			Vector:          randomVector(e.dimension),
			TopK:            topK,
			Filter:          filter,
			IncludeMetadata: true,
		})
		if err != nil {
			return nil, err
		}
		added := 0
		for _, m := range matches {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			sample.Records = append(sample.Records, m)
			added++
		}
		if added == 0 {
			break
		}
	}
	if len(sample.Records) > 0 {
		sample.ScaleFactor = float64(sample.TotalVectors) / float64(len(sample.Records))
		if sample.ScaleFactor < 1 {
			sample.ScaleFactor = 1
		}
	}
	logger.Debug("sample drawn",
		zap.Int("records", len(sample.Records)),
		zap.Int("total_vectors", sample.TotalVectors),
		zap.Float64("scale_factor", sample.ScaleFactor),
	)
	return sample, nil
}

func randomVector(dimension int) []float32 {
	vec := make([]float32, dimension)
	for i := range vec {
		vec[i] = rand.Float32()*2 - 1
	}
	return vec
}

// zeroVectorQuery is the placeholder-vector technique shared by list and
// metadata search. Matches are nearest neighbors of the zero vector, not a
// table scan: documents that never surface among its top matches are missed.
func (e *Engine) zeroVectorQuery(ctx context.Context, topK int, filter map[string]any) ([]model.Match, error) {
	return e.store.Query(ctx, vecstore.QueryRequest{
		Vector:          ai.ZeroVector(e.dimension),
		TopK:            topK,
		Filter:          filter,
		IncludeMetadata: true,
	})
}

func eqFilter(key, value string) map[string]any {
	if value == "" {
		return nil
	}
	return map[string]any{key: map[string]any{"$eq": value}}
}
