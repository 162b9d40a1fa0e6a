package maintain

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ingest"
	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/vecstore"
)

// Operation tags accepted by Execute.
const (
	OpStats            = "stats"
	OpList             = "list"
	OpUpdate           = "update"
	OpDelete           = "delete"
	OpCleanup          = "cleanup"
	OpCategories       = "categories"
	OpSearchByMetadata = "search-by-metadata"
)

// IStore is the slice of the store adapter maintenance operations use. There
// is no native enumeration API: discovery goes through nearest-neighbor
// queries with placeholder vectors.
type IStore interface {
	Query(ctx context.Context, req vecstore.QueryRequest) ([]model.Match, error)
	Stats(ctx context.Context) (*vecstore.IndexStats, error)
	SafeDelete(ctx context.Context, ids []string) (int, error)
	SafeUpdate(ctx context.Context, patches []vecstore.MetadataPatch) (int, error)
}

// IIngester re-runs the ingestion pipeline for content-replacing updates.
type IIngester interface {
	Ingest(ctx context.Context, req ingest.Request) *ingest.Result
}

type Engine struct {
	store     IStore
	ingester  IIngester
	dimension int
}

func NewEngine(store IStore, ingester IIngester, dimension int) *Engine {
	if dimension <= 0 {
		dimension = 1536
	}
	return &Engine{store: store, ingester: ingester, dimension: dimension}
}

// Options is the shared option bag for all maintenance operations; each
// operation reads the fields it cares about.
type Options struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Source   string `json:"source"`

	Limit     int    `json:"limit"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`

	IDs             []string `json:"ids"`
	ConfirmDeletion bool     `json:"confirm_deletion"`

	NewContent  string         `json:"new_content"`
	NewMetadata map[string]any `json:"new_metadata"`
	UpdateMode  string         `json:"update_mode"`

	DryRun             bool `json:"dry_run"`
	RemoveShortContent bool `json:"remove_short_content"`
	RemoveDuplicates   bool `json:"remove_duplicates"`
	FixTimestamps      bool `json:"fix_timestamps"`
	SampleLimit        int  `json:"sample_limit"`

	Filter         map[string]any `json:"filter"`
	IncludeContent bool           `json:"include_content"`
}

// OpResult is the uniform result envelope: failure is encoded in-band, an
// unrecognized operation tag returns a structured failure, never a panic.
type OpResult struct {
	Operation string   `json:"operation"`
	Success   bool     `json:"success"`
	Data      any      `json:"data,omitempty"`
	Message   string   `json:"message,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

func (e *Engine) Execute(ctx context.Context, operation string, opts Options) *OpResult {
	logger := logutil.GetLogger(ctx).With(zap.String("operation", operation))
	res := &OpResult{Operation: operation}
	var err error
	switch operation {
	case OpStats:
		err = e.stats(ctx, opts, res)
	case OpList:
		err = e.list(ctx, opts, res)
	case OpUpdate:
		err = e.update(ctx, opts, res)
	case OpDelete:
		err = e.delete(ctx, opts, res)
	case OpCleanup:
		err = e.cleanup(ctx, opts, res)
	case OpCategories:
		err = e.categories(ctx, opts, res)
	case OpSearchByMetadata:
		err = e.searchByMetadata(ctx, opts, res)
	default:
		err = fmt.Errorf("unknown operation: %q", operation)
	}
	if err != nil {
		res.Success = false
		res.Errors = append(res.Errors, err.Error())
		logger.Warn("operation failed", zap.Error(err))
		return res
	}
	res.Success = true
	return res
}
