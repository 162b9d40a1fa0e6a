package maintain

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

type DeleteReport struct {
	Deleted    int    `json:"deleted"`
	ResolvedBy string `json:"resolved_by"`
}

// delete removes records by explicit ids, by title, or by category, in that
// priority order. The confirmation flag is a hard gate against accidental
// bulk deletion; an empty resolution is zero deleted, not an error.
func (e *Engine) delete(ctx context.Context, opts Options, res *OpResult) error {
	if !opts.ConfirmDeletion {
		return fmt.Errorf("%w: set confirm_deletion to delete records", appErr.ErrConfirmationRequired)
	}

	var ids []string
	var resolvedBy string
	switch {
	case len(opts.IDs) > 0:
		ids = opts.IDs
		resolvedBy = "ids"
	case opts.Title != "":
		resolvedBy = "title"
		matches, err := e.zeroVectorQuery(ctx, listFetchCeiling, eqFilter(model.MetaTitle, opts.Title))
		if err != nil {
			return err
		}
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
	case opts.Category != "":
		resolvedBy = "category"
		matches, err := e.zeroVectorQuery(ctx, listFetchCeiling, eqFilter(model.MetaCategory, opts.Category))
		if err != nil {
			return err
		}
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
	default:
		return fmt.Errorf("%w: supply ids, title or category", appErr.ErrInvalid)
	}

	if len(ids) == 0 {
		res.Data = &DeleteReport{Deleted: 0, ResolvedBy: resolvedBy}
		res.Message = "nothing matched, nothing deleted"
		return nil
	}
	deleted, err := e.store.SafeDelete(ctx, ids)
	if err != nil {
		return err
	}
	res.Data = &DeleteReport{Deleted: deleted, ResolvedBy: resolvedBy}
	logutil.GetLogger(ctx).Info("records deleted",
		zap.Int("deleted", deleted),
		zap.String("resolved_by", resolvedBy),
	)
	return nil
}
