package maintain

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ingest"
	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/vecstore"
)

const (
	UpdateMetadataOnly = "metadata-only"
	UpdateReplace      = "replace"
)

type UpdateReport struct {
	Mode          string `json:"mode"`
	ChunksUpdated int    `json:"chunks_updated"`
	ChunksDeleted int    `json:"chunks_deleted"`
	ChunksIndexed int    `json:"chunks_indexed"`
}

// update patches a document's chunks in place (metadata-only) or replaces the
// document wholesale: delete every existing chunk, then re-run ingestion on
// the new content. Replace inherits ingestion's non-transactional batching;
// two concurrent updates of one title can interleave, which is an accepted
// race of the underlying store.
func (e *Engine) update(ctx context.Context, opts Options, res *OpResult) error {
	logger := logutil.GetLogger(ctx).With(zap.String("title", opts.Title))
	if opts.Title == "" {
		return fmt.Errorf("%w: title is required", appErr.ErrInvalid)
	}
	if opts.NewContent == "" && len(opts.NewMetadata) == 0 {
		return fmt.Errorf("%w: nothing to update, supply new content or new metadata", appErr.ErrInvalid)
	}

	existing, err := e.zeroVectorQuery(ctx, listFetchCeiling, eqFilter(model.MetaTitle, opts.Title))
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return fmt.Errorf("%w: no chunks found for title %q", appErr.ErrNotFound, opts.Title)
	}

	mode := opts.UpdateMode
	if mode == "" {
		mode = UpdateReplace
	}
	// a replace without new content degenerates to a metadata patch
	if mode == UpdateReplace && opts.NewContent == "" {
		mode = UpdateMetadataOnly
	}

	switch mode {
	case UpdateMetadataOnly:
		patches := make([]vecstore.MetadataPatch, 0, len(existing))
		for _, m := range existing {
			merged := make(map[string]any, len(m.Metadata)+len(opts.NewMetadata))
			for k, v := range m.Metadata {
				merged[k] = v
			}
			for k, v := range opts.NewMetadata {
				if k == model.MetaContent || k == model.MetaChunkIndex || k == model.MetaTotalChunks {
					continue
				}
				merged[k] = v
			}
			patches = append(patches, vecstore.MetadataPatch{ID: m.ID, Metadata: merged})
		}
		updated, err := e.store.SafeUpdate(ctx, patches)
		if err != nil {
			return err
		}
		res.Data = &UpdateReport{Mode: UpdateMetadataOnly, ChunksUpdated: updated}
		logger.Info("metadata patched", zap.Int("chunks_updated", updated))
		return nil

	case UpdateReplace:
		oldMeta := model.MetadataFromMap(existing[0].Metadata)
		req := ingest.Request{
			Title:    opts.Title,
			Category: mergedField(opts.NewMetadata, model.MetaCategory, oldMeta.Category),
			Source:   mergedField(opts.NewMetadata, model.MetaSource, oldMeta.Source),
			Content:  opts.NewContent,
			Options:  ingest.Options{ExtractMetadata: true, ValidateContent: true},
		}

		ids := make([]string, 0, len(existing))
		for _, m := range existing {
			ids = append(ids, m.ID)
		}
		deleted, err := e.store.SafeDelete(ctx, ids)
		if err != nil {
			return err
		}
		ingestRes := e.ingester.Ingest(ctx, req)
		if !ingestRes.Success {
			res.Data = &UpdateReport{Mode: UpdateReplace, ChunksDeleted: deleted, ChunksIndexed: ingestRes.ChunksIndexed}
			return fmt.Errorf("reingest after delete failed: %v", ingestRes.Errors)
		}
		res.Data = &UpdateReport{Mode: UpdateReplace, ChunksDeleted: deleted, ChunksIndexed: ingestRes.ChunksIndexed}
		logger.Info("document replaced",
			zap.Int("chunks_deleted", deleted),
			zap.Int("chunks_indexed", ingestRes.ChunksIndexed),
		)
		return nil

	default:
		return fmt.Errorf("%w: unknown update mode %q", appErr.ErrInvalid, mode)
	}
}

func mergedField(newMeta map[string]any, key, old string) string {
	if newMeta != nil {
		if v, ok := newMeta[key].(string); ok && v != "" {
			return v
		}
	}
	return old
}
