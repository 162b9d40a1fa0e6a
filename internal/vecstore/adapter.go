package vecstore

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

const (
	defaultUpsertBatch = 100

	indexPollInterval = 5 * time.Second
	indexPollCeiling  = 300 * time.Second
)

// IIndexClient is the slice of Client the adapter consumes.
type IIndexClient interface {
	Upsert(ctx context.Context, records []model.VectorRecord) error
	Query(ctx context.Context, req QueryRequest) ([]model.Match, error)
	Update(ctx context.Context, id string, metadata map[string]any) error
	Delete(ctx context.Context, ids []string) error
	DeleteOne(ctx context.Context, id string) error
	Stats(ctx context.Context) (*IndexStats, error)
	ListIndexes(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, spec IndexSpec) error
}

type AdapterConfig struct {
	IndexName   string
	UpsertBatch int
	Pace        time.Duration
}

// Adapter hides version skew in the index service's mutation API and paces
// bulk writes the same way the embedding client paces provider calls.
type Adapter struct {
	client      IIndexClient
	indexName   string
	upsertBatch int
	limiter     *rate.Limiter
}

func NewAdapter(client IIndexClient, cfg AdapterConfig) *Adapter {
	batch := cfg.UpsertBatch
	if batch <= 0 {
		batch = defaultUpsertBatch
	}
	pace := cfg.Pace
	if pace <= 0 {
		pace = 100 * time.Millisecond
	}
	return &Adapter{
		client:      client,
		indexName:   cfg.IndexName,
		upsertBatch: batch,
		limiter:     rate.NewLimiter(rate.Every(pace), 1),
	}
}

func (a *Adapter) Query(ctx context.Context, req QueryRequest) ([]model.Match, error) {
	matches, err := a.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	return matches, nil
}

func (a *Adapter) Stats(ctx context.Context) (*IndexStats, error) {
	stats, err := a.client.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStore, err)
	}
	return stats, nil
}

// SafeUpsert writes records in paced batches. A failure partway through leaves
// earlier batches committed; the returned batch count covers committed batches.
func (a *Adapter) SafeUpsert(ctx context.Context, records []model.VectorRecord) (int, error) {
	batches := 0
	for start := 0; start < len(records); start += a.upsertBatch {
		if err := a.limiter.Wait(ctx); err != nil {
			return batches, fmt.Errorf("%w: %v", appErr.ErrStore, err)
		}
		end := start + a.upsertBatch
		if end > len(records) {
			end = len(records)
		}
		if err := a.client.Upsert(ctx, records[start:end]); err != nil {
			return batches, fmt.Errorf("%w: upsert batch %d: %v", appErr.ErrStore, batches, err)
		}
		batches++
	}
	return batches, nil
}

// MetadataPatch is one in-place metadata update.
type MetadataPatch struct {
	ID       string
	Metadata map[string]any
}

// SafeUpdate applies patches one record at a time; the service has no bulk
// metadata-update primitive.
func (a *Adapter) SafeUpdate(ctx context.Context, patches []MetadataPatch) (int, error) {
	updated := 0
	for _, patch := range patches {
		if err := a.client.Update(ctx, patch.ID, patch.Metadata); err != nil {
			return updated, fmt.Errorf("%w: update %s: %v", appErr.ErrStore, patch.ID, err)
		}
		updated++
	}
	return updated, nil
}

// SafeDelete tries the bulk delete primitive, falls back to legacy single-id
// deletes, and as a last resort deletes ids individually while logging (not
// aborting on) per-id failures.
func (a *Adapter) SafeDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	logger := logutil.GetLogger(ctx)
	if err := a.client.Delete(ctx, ids); err == nil {
		return len(ids), nil
	} else {
		logger.Warn("bulk delete rejected, falling back to single-id deletes", zap.Error(err))
	}
	deleted := 0
	var lastErr error
	for _, id := range ids {
		if err := a.client.DeleteOne(ctx, id); err != nil {
			lastErr = err
			logger.Warn("delete failed", zap.String("id", id), zap.Error(err))
			continue
		}
		deleted++
	}
	if deleted == 0 && lastErr != nil {
		return 0, fmt.Errorf("%w: %v", appErr.ErrStore, lastErr)
	}
	return deleted, nil
}

// EnsureIndex creates the index when absent and polls stats until the index
// answers, failing with ErrIndexCreateTimeout when readiness is never observed.
func (a *Adapter) EnsureIndex(ctx context.Context, dimension int, metric string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("index", a.indexName))
	names, err := a.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("%w: list indexes: %v", appErr.ErrStore, err)
	}
	for _, name := range names {
		if name == a.indexName {
			return nil
		}
	}
	logger.Info("creating index", zap.Int("dimension", dimension), zap.String("metric", metric))
	if err := a.client.CreateIndex(ctx, IndexSpec{
		Name:      a.indexName,
		Dimension: dimension,
		Metric:    metric,
	}); err != nil {
		return fmt.Errorf("%w: create index: %v", appErr.ErrStore, err)
	}

	deadline := time.Now().Add(indexPollCeiling)
	for time.Now().Before(deadline) {
		if _, err := a.client.Stats(ctx); err == nil {
			logger.Info("index ready")
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", appErr.ErrIndexCreateTimeout, ctx.Err())
		case <-time.After(indexPollInterval):
		}
	}
	return appErr.ErrIndexCreateTimeout
}
