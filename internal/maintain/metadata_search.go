package maintain

import (
	"context"
	"fmt"

	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
)

type MetadataSearchReport struct {
	Matches []model.Match `json:"matches"`
	Total   int           `json:"total"`
}

// searchByMetadata is a pass-through equality-filter query: no embedding call,
// same placeholder-vector technique (and the same blindness) as list.
func (e *Engine) searchByMetadata(ctx context.Context, opts Options, res *OpResult) error {
	if len(opts.Filter) == 0 {
		return fmt.Errorf("%w: filter is required", appErr.ErrInvalid)
	}
	filter := make(map[string]any, len(opts.Filter))
	for key, value := range opts.Filter {
		filter[key] = map[string]any{"$eq": value}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > listFetchCeiling {
		limit = listFetchCeiling
	}
	matches, err := e.zeroVectorQuery(ctx, limit, filter)
	if err != nil {
		return err
	}
	if !opts.IncludeContent {
		for i := range matches {
			stripped := make(map[string]any, len(matches[i].Metadata))
			for k, v := range matches[i].Metadata {
				if k == model.MetaContent {
					continue
				}
				stripped[k] = v
			}
			matches[i].Metadata = stripped
		}
	}
	res.Data = &MetadataSearchReport{Matches: matches, Total: len(matches)}
	return nil
}
