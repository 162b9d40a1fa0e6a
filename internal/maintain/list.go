package maintain

import (
	"context"
	"sort"

	"github.com/xxxsen/kbase/internal/model"
)

const listFetchCeiling = 10000

// DocumentSummary is a synthetic per-title aggregate built from the chunk
// records that surfaced for the placeholder vector.
type DocumentSummary struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Source      string   `json:"source"`
	ChunkCount  int      `json:"chunk_count"`
	TotalChunks int      `json:"total_chunks"`
	WordCount   int      `json:"word_count"`
	ChunkIDs    []string `json:"chunk_ids"`
	LastUpdated string   `json:"last_updated"`
}

type ListReport struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
	// BestEffort flags that listing rides on a zero-vector nearest-neighbor
	// query; documents outside its top matches are missed.
	BestEffort bool `json:"best_effort"`
}

func (e *Engine) list(ctx context.Context, opts Options, res *OpResult) error {
	fetch := opts.Limit
	if fetch <= 0 {
		fetch = 100
	}
	if fetch > listFetchCeiling {
		fetch = listFetchCeiling
	}
	filter := eqFilter(model.MetaCategory, opts.Category)
	if filter == nil {
		filter = eqFilter(model.MetaSource, opts.Source)
	}
	matches, err := e.zeroVectorQuery(ctx, fetch, filter)
	if err != nil {
		return err
	}

	byTitle := make(map[string]*DocumentSummary)
	order := make([]string, 0)
	for _, m := range matches {
		meta := model.MetadataFromMap(m.Metadata)
		if meta.Title == "" {
			continue
		}
		doc, ok := byTitle[meta.Title]
		if !ok {
			doc = &DocumentSummary{
				Title:       meta.Title,
				Category:    meta.Category,
				Source:      meta.Source,
				TotalChunks: meta.TotalChunks,
			}
			byTitle[meta.Title] = doc
			order = append(order, meta.Title)
		}
		doc.ChunkCount++
		doc.WordCount += meta.WordCount
		doc.ChunkIDs = append(doc.ChunkIDs, m.ID)
		if meta.Timestamp > doc.LastUpdated {
			doc.LastUpdated = meta.Timestamp
		}
	}

	docs := make([]DocumentSummary, 0, len(byTitle))
	for _, title := range order {
		docs = append(docs, *byTitle[title])
	}
	sortDocuments(docs, opts.SortBy, opts.SortOrder)
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}

	res.Data = &ListReport{Documents: docs, Total: len(docs), BestEffort: true}
	res.Message = "listing is best-effort: built from nearest-neighbor matches, not a table scan"
	return nil
}

func sortDocuments(docs []DocumentSummary, sortBy, sortOrder string) {
	less := func(i, j int) bool { return docs[i].Title < docs[j].Title }
	switch sortBy {
	case "category":
		less = func(i, j int) bool { return docs[i].Category < docs[j].Category }
	case "timestamp":
		less = func(i, j int) bool { return docs[i].LastUpdated < docs[j].LastUpdated }
	}
	if sortOrder == "desc" {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(docs, less)
}
