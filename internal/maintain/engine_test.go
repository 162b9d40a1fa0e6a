package maintain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/ingest"
	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/vecstore"
)

type fakeStore struct {
	matches    []model.Match
	queryErr   error
	lastQuery  vecstore.QueryRequest
	total      int
	deletedIDs []string
	patches    []vecstore.MetadataPatch
}

func (f *fakeStore) Query(ctx context.Context, req vecstore.QueryRequest) ([]model.Match, error) {
	f.lastQuery = req
	return f.matches, f.queryErr
}

func (f *fakeStore) Stats(ctx context.Context) (*vecstore.IndexStats, error) {
	return &vecstore.IndexStats{TotalVectorCount: f.total}, nil
}

func (f *fakeStore) SafeDelete(ctx context.Context, ids []string) (int, error) {
	f.deletedIDs = append(f.deletedIDs, ids...)
	return len(ids), nil
}

func (f *fakeStore) SafeUpdate(ctx context.Context, patches []vecstore.MetadataPatch) (int, error) {
	f.patches = append(f.patches, patches...)
	return len(patches), nil
}

type fakeIngester struct {
	lastReq ingest.Request
	result  *ingest.Result
}

func (f *fakeIngester) Ingest(ctx context.Context, req ingest.Request) *ingest.Result {
	f.lastReq = req
	return f.result
}

func chunkMatch(id, title, category, content string, idx int, ts string) model.Match {
	return model.Match{
		ID: id,
		Metadata: map[string]any{
			model.MetaTitle:       title,
			model.MetaCategory:    category,
			model.MetaSource:      "wiki",
			model.MetaContent:     content,
			model.MetaChunkIndex:  idx,
			model.MetaTotalChunks: 3,
			model.MetaTimestamp:   ts,
			model.MetaWordCount:   len(content) / 5,
		},
	}
}

func TestExecuteUnknownOperation(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, 8)
	res := engine.Execute(context.Background(), "defragment", Options{})
	require.False(t, res.Success)
	require.Contains(t, res.Errors[0], "unknown operation")
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	store := &fakeStore{matches: []model.Match{chunkMatch("id-1", "t", "c", "body", 0, "")}}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpDelete, Options{Title: "t"})
	require.False(t, res.Success)
	require.Contains(t, res.Errors[0], "confirm")
	require.Empty(t, store.deletedIDs)
}

func TestDeleteByIDs(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpDelete, Options{
		IDs:             []string{"a", "b"},
		ConfirmDeletion: true,
	})
	require.True(t, res.Success)
	report := res.Data.(*DeleteReport)
	require.Equal(t, 2, report.Deleted)
	require.Equal(t, "ids", report.ResolvedBy)
	require.Equal(t, []string{"a", "b"}, store.deletedIDs)
}

func TestDeleteByTitleNothingMatched(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpDelete, Options{
		Title:           "ghost",
		ConfirmDeletion: true,
	})
	require.True(t, res.Success)
	report := res.Data.(*DeleteReport)
	require.Equal(t, 0, report.Deleted)
	require.Contains(t, res.Message, "nothing matched")
}

func TestDeleteNoSelector(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, 8)
	res := engine.Execute(context.Background(), OpDelete, Options{ConfirmDeletion: true})
	require.False(t, res.Success)
	require.Contains(t, res.Errors[0], "supply ids, title or category")
}

func TestUpdateMetadataOnly(t *testing.T) {
	ts := time.Now().UTC().Format(time.RFC3339)
	store := &fakeStore{matches: []model.Match{
		chunkMatch("id-0", "guide", "old-cat", "chunk zero", 0, ts),
		chunkMatch("id-1", "guide", "old-cat", "chunk one", 1, ts),
		chunkMatch("id-2", "guide", "old-cat", "chunk two", 2, ts),
	}}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpUpdate, Options{
		Title:      "guide",
		UpdateMode: UpdateMetadataOnly,
		NewMetadata: map[string]any{
			model.MetaCategory: "new-cat",
			model.MetaContent:  "must not overwrite",
		},
	})
	require.True(t, res.Success)
	report := res.Data.(*UpdateReport)
	require.Equal(t, UpdateMetadataOnly, report.Mode)
	require.Equal(t, 3, report.ChunksUpdated)

	require.Len(t, store.patches, 3)
	for _, patch := range store.patches {
		require.Equal(t, "new-cat", patch.Metadata[model.MetaCategory])
		// content and chunk positions are never patched in place
		require.NotEqual(t, "must not overwrite", patch.Metadata[model.MetaContent])
	}
}

func TestUpdateReplaceReingests(t *testing.T) {
	ts := time.Now().UTC().Format(time.RFC3339)
	store := &fakeStore{matches: []model.Match{
		chunkMatch("id-0", "guide", "old-cat", "old chunk", 0, ts),
		chunkMatch("id-1", "guide", "old-cat", "old chunk two", 1, ts),
	}}
	ingester := &fakeIngester{result: &ingest.Result{Success: true, ChunksIndexed: 4}}
	engine := NewEngine(store, ingester, 8)

	res := engine.Execute(context.Background(), OpUpdate, Options{
		Title:      "guide",
		NewContent: "entirely new document body",
	})
	require.True(t, res.Success)
	report := res.Data.(*UpdateReport)
	require.Equal(t, UpdateReplace, report.Mode)
	require.Equal(t, 2, report.ChunksDeleted)
	require.Equal(t, 4, report.ChunksIndexed)
	require.Equal(t, []string{"id-0", "id-1"}, store.deletedIDs)
	require.Equal(t, "guide", ingester.lastReq.Title)
	require.Equal(t, "old-cat", ingester.lastReq.Category)
}

func TestUpdateReplaceWithoutContentDegenerates(t *testing.T) {
	store := &fakeStore{matches: []model.Match{chunkMatch("id-0", "guide", "c", "body", 0, "")}}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpUpdate, Options{
		Title:       "guide",
		UpdateMode:  UpdateReplace,
		NewMetadata: map[string]any{model.MetaSource: "new source"},
	})
	require.True(t, res.Success)
	report := res.Data.(*UpdateReport)
	require.Equal(t, UpdateMetadataOnly, report.Mode)
	require.Empty(t, store.deletedIDs)
}

func TestUpdateUnknownTitle(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, 8)
	res := engine.Execute(context.Background(), OpUpdate, Options{
		Title:       "ghost",
		NewMetadata: map[string]any{model.MetaCategory: "x"},
	})
	require.False(t, res.Success)
	require.Contains(t, res.Errors[0], "no chunks found")
}

func TestUpdateNothingToDo(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, 8)
	res := engine.Execute(context.Background(), OpUpdate, Options{Title: "guide"})
	require.False(t, res.Success)
	require.Contains(t, res.Errors[0], "nothing to update")
}

func TestListGroupsByTitle(t *testing.T) {
	ts1 := "2026-08-01T10:00:00Z"
	ts2 := "2026-08-15T10:00:00Z"
	store := &fakeStore{matches: []model.Match{
		chunkMatch("a-0", "alpha", "cat1", "alpha chunk zero", 0, ts1),
		chunkMatch("a-1", "alpha", "cat1", "alpha chunk one", 1, ts2),
		chunkMatch("b-0", "beta", "cat2", "beta chunk zero", 0, ts1),
	}}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpList, Options{})
	require.True(t, res.Success)
	report := res.Data.(*ListReport)
	require.True(t, report.BestEffort)
	require.Equal(t, 2, report.Total)

	require.Equal(t, "alpha", report.Documents[0].Title)
	require.Equal(t, 2, report.Documents[0].ChunkCount)
	require.Equal(t, ts2, report.Documents[0].LastUpdated)
	require.Equal(t, []string{"a-0", "a-1"}, report.Documents[0].ChunkIDs)
	require.Equal(t, "beta", report.Documents[1].Title)
}

func TestListSortDesc(t *testing.T) {
	docs := []DocumentSummary{{Title: "alpha"}, {Title: "beta"}}
	sortDocuments(docs, "title", "desc")
	require.Equal(t, "beta", docs[0].Title)
}

func TestListCategoryFilter(t *testing.T) {
	store := &fakeStore{}
	engine := NewEngine(store, nil, 8)

	engine.Execute(context.Background(), OpList, Options{Category: "devops"})
	require.Equal(t, map[string]any{
		model.MetaCategory: map[string]any{"$eq": "devops"},
	}, store.lastQuery.Filter)
}

func TestStatsExtrapolates(t *testing.T) {
	ts := "2026-07-03T12:00:00Z"
	store := &fakeStore{
		total: 100,
		matches: []model.Match{
			chunkMatch("a", "t1", "cat1", "some body text here", 0, ts),
			chunkMatch("b", "t2", "cat1", "more body text here", 0, ts),
			chunkMatch("c", "t3", "cat2", "other body text here", 0, ts),
			chunkMatch("d", "t4", "", "uncategorized text here", 0, ""),
		},
	}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpStats, Options{})
	require.True(t, res.Success)
	report := res.Data.(*StatsReport)
	require.True(t, report.Estimated)
	require.Equal(t, 100, report.TotalVectors)
	require.Equal(t, 4, report.SampleSize)
	require.InDelta(t, 25.0, report.ScaleFactor, 1e-9)
	// 2 of 4 sampled in cat1, scaled by 25
	require.Equal(t, 50, report.Categories["cat1"])
	require.Equal(t, 25, report.Categories["cat2"])
	require.Equal(t, 25, report.Categories["unknown"])
	require.Equal(t, 75, report.Months["2026-07"])
	require.Contains(t, res.Message, "estimates")
}

func TestStatsEmptyIndex(t *testing.T) {
	engine := NewEngine(&fakeStore{total: 0}, nil, 8)
	res := engine.Execute(context.Background(), OpStats, Options{})
	require.True(t, res.Success)
	report := res.Data.(*StatsReport)
	require.Equal(t, 0, report.SampleSize)
	require.Contains(t, res.Message, "empty")
}

func TestCategoriesReport(t *testing.T) {
	ts := "2026-08-20T09:00:00Z"
	store := &fakeStore{
		total: 30,
		matches: []model.Match{
			chunkMatch("a", "t1", "big", "content a", 0, ts),
			chunkMatch("b", "t2", "big", "content b", 0, ts),
			chunkMatch("c", "t3", "small", "content c", 0, ts),
		},
	}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpCategories, Options{})
	require.True(t, res.Success)
	report := res.Data.(*CategoriesReport)
	require.True(t, report.Estimated)
	require.Len(t, report.Categories, 2)
	require.Equal(t, "big", report.Categories[0].Category)
	require.Equal(t, 2, report.Categories[0].SampleCount)
	require.Equal(t, 20, report.Categories[0].EstimatedTotal)
	require.Equal(t, []string{"wiki"}, report.Categories[0].Sources)
}

func TestCleanupDryRunCountsWithoutMutating(t *testing.T) {
	ts := time.Now().UTC().Format(time.RFC3339)
	store := &fakeStore{
		total: 4,
		matches: []model.Match{
			chunkMatch("short", "t", "c", "hi", 0, ts),
			chunkMatch("orig", "t", "c", "this content body is duplicated verbatim", 1, ts),
			chunkMatch("dup", "t", "c", "this content body is duplicated verbatim", 2, ts),
			chunkMatch("nostamp", "t", "c", "valid content without a timestamp", 0, ""),
		},
	}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpCleanup, Options{
		DryRun:             true,
		RemoveShortContent: true,
		RemoveDuplicates:   true,
		FixTimestamps:      true,
	})
	require.True(t, res.Success)
	report := res.Data.(*CleanupReport)
	require.True(t, report.DryRun)
	require.Equal(t, 1, report.ShortContent)
	require.Equal(t, 1, report.Duplicates)
	require.Equal(t, 1, report.InvalidStamps)
	require.Equal(t, 0, report.RecordsDeleted)
	require.Equal(t, 0, report.RecordsPatched)
	require.Empty(t, store.deletedIDs)
	require.Empty(t, store.patches)
}

func TestCleanupMutates(t *testing.T) {
	ts := time.Now().UTC().Format(time.RFC3339)
	store := &fakeStore{
		total: 2,
		matches: []model.Match{
			chunkMatch("short", "t", "c", "hi", 0, ts),
			chunkMatch("nostamp", "t", "c", "valid content without a timestamp", 0, ""),
		},
	}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpCleanup, Options{
		RemoveShortContent: true,
		FixTimestamps:      true,
	})
	require.True(t, res.Success)
	report := res.Data.(*CleanupReport)
	require.Equal(t, 1, report.RecordsDeleted)
	require.Equal(t, 1, report.RecordsPatched)
	require.Equal(t, []string{"short"}, store.deletedIDs)
	require.Len(t, store.patches, 1)
	require.Equal(t, "nostamp", store.patches[0].ID)
	require.NotEmpty(t, store.patches[0].Metadata[model.MetaTimestamp])
}

func TestSearchByMetadataRequiresFilter(t *testing.T) {
	engine := NewEngine(&fakeStore{}, nil, 8)
	res := engine.Execute(context.Background(), OpSearchByMetadata, Options{})
	require.False(t, res.Success)
	require.Contains(t, res.Errors[0], "filter is required")
}

func TestSearchByMetadataStripsContent(t *testing.T) {
	store := &fakeStore{matches: []model.Match{
		chunkMatch("a", "t", "c", "secret chunk body", 0, ""),
	}}
	engine := NewEngine(store, nil, 8)

	res := engine.Execute(context.Background(), OpSearchByMetadata, Options{
		Filter: map[string]any{model.MetaSource: "wiki"},
	})
	require.True(t, res.Success)
	require.Equal(t, map[string]any{
		model.MetaSource: map[string]any{"$eq": "wiki"},
	}, store.lastQuery.Filter)

	report := res.Data.(*MetadataSearchReport)
	require.Equal(t, 1, report.Total)
	require.NotContains(t, report.Matches[0].Metadata, model.MetaContent)
	require.Contains(t, report.Matches[0].Metadata, model.MetaTitle)
}

func TestInvalidTimestamp(t *testing.T) {
	require.True(t, invalidTimestamp(model.RecordMetadata{Timestamp: ""}))
	require.True(t, invalidTimestamp(model.RecordMetadata{Timestamp: "not a time"}))
	require.True(t, invalidTimestamp(model.RecordMetadata{Timestamp: "1999-01-01T00:00:00Z"}))
	require.False(t, invalidTimestamp(model.RecordMetadata{Timestamp: "2026-08-01T00:00:00Z"}))
}
