package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/vecstore"
)

const (
	maxTopK          = 20
	defaultTopK      = 10
	defaultThreshold = 0.7
)

// IQuerier is the slice of the store adapter the engine reads through.
type IQuerier interface {
	Query(ctx context.Context, req vecstore.QueryRequest) ([]model.Match, error)
}

type Engine struct {
	embedder ai.IEmbedder
	store    IQuerier
}

func NewEngine(embedder ai.IEmbedder, store IQuerier) *Engine {
	return &Engine{embedder: embedder, store: store}
}

type SearchOptions struct {
	TopK      int     `json:"top_k"`
	Category  string  `json:"category"`
	Threshold float64 `json:"threshold"`
}

type SearchResponse struct {
	Success     bool                 `json:"success"`
	Query       string               `json:"query"`
	TotalFound  int                  `json:"total_found"`
	Results     []model.SearchResult `json:"results"`
	Suggestions []string             `json:"suggestions,omitempty"`
	Errors      []string             `json:"errors,omitempty"`
}

// Search embeds the query, runs a similarity search and filters by threshold.
// The store is asked for exactly topK neighbors (capped at 20), so threshold
// filtering can leave fewer than topK results. Zero qualifying results is a
// valid outcome: the response carries suggestions instead of an error.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) *SearchResponse {
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))
	resp := &SearchResponse{Query: query}
	if strings.TrimSpace(query) == "" {
		resp.Errors = append(resp.Errors, fmt.Errorf("%w: query is required", appErr.ErrInvalid).Error())
		return resp
	}
	topK := clampTopK(opts.TopK)
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	vector, err := e.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		resp.Errors = append(resp.Errors, err.Error())
		return resp
	}
	matches, err := e.store.Query(ctx, vecstore.QueryRequest{
		Vector:          vector,
		TopK:            topK,
		Filter:          categoryFilter(opts.Category),
		IncludeMetadata: true,
	})
	if err != nil {
		resp.Errors = append(resp.Errors, err.Error())
		return resp
	}

	for _, m := range matches {
		if m.Score < threshold {
			continue
		}
		resp.Results = append(resp.Results, model.ResultFromMatch(m))
		if len(resp.Results) >= topK {
			break
		}
	}
	resp.TotalFound = len(resp.Results)
	resp.Success = true
	if resp.TotalFound == 0 {
		resp.Suggestions = zeroResultSuggestions(opts)
	}
	logger.Debug("search completed",
		zap.Int("matches", len(matches)),
		zap.Int("qualifying", resp.TotalFound),
		zap.Float64("threshold", threshold),
	)
	return resp
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return defaultTopK
	}
	if topK > maxTopK {
		return maxTopK
	}
	return topK
}

func categoryFilter(category string) map[string]any {
	if category == "" {
		return nil
	}
	return map[string]any{
		model.MetaCategory: map[string]any{"$eq": category},
	}
}

func zeroResultSuggestions(opts SearchOptions) []string {
	suggestions := []string{
		"try rephrasing the query with different wording",
		"use broader or more general terms",
		"lower the similarity threshold",
	}
	if opts.Category != "" {
		suggestions = append(suggestions, "remove the category filter to search all documents")
	}
	return suggestions
}

// Ensure the adapter satisfies the consumer interface.
var _ IQuerier = (*vecstore.Adapter)(nil)
