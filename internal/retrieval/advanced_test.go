package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/kbase/internal/model"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "drops stopwords and short tokens",
			query: "how does the go scheduler work",
			want:  []string{"scheduler", "work"},
		},
		{
			name:  "strips punctuation",
			query: "what is gRPC, really?",
			want:  []string{"grpc", "really"},
		},
		{
			name:  "all stopwords",
			query: "what is the",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractKeywords(tt.query))
		})
	}
}

func TestRerankExactMatchBoost(t *testing.T) {
	now := time.Now()
	results := []model.SearchResult{
		{ID: "plain", Score: 0.80, Content: "nothing relevant here"},
		{ID: "matched", Score: 0.80, Content: "golang concurrency with golang channels"},
	}
	ranked := Rerank("golang concurrency", results, now)

	// "golang" appears twice and "concurrency" once: 3 matches, +0.3
	require.Equal(t, "matched", ranked[0].ID)
	require.InDelta(t, 1.0, ranked[0].RerankScore, 1e-9) // clamped from 1.1
	require.InDelta(t, 0.80, ranked[1].RerankScore, 1e-9)
}

func TestRerankRecencyAndSourceBoosts(t *testing.T) {
	now := time.Now()
	recent := now.Add(-24 * time.Hour).Format(time.RFC3339)
	stale := now.Add(-90 * 24 * time.Hour).Format(time.RFC3339)

	results := []model.SearchResult{
		{ID: "stale", Score: 0.70, Timestamp: stale},
		{ID: "recent", Score: 0.70, Timestamp: recent},
		{ID: "official", Score: 0.70, Timestamp: stale, Source: "Official Docs"},
	}
	ranked := Rerank("unrelated query", results, now)

	scores := map[string]float64{}
	for _, r := range ranked {
		scores[r.ID] = r.RerankScore
	}
	require.InDelta(t, 0.70, scores["stale"], 1e-9)
	require.InDelta(t, 0.75, scores["recent"], 1e-9)
	require.InDelta(t, 0.75, scores["official"], 1e-9)
}

func TestRerankStableForEqualScores(t *testing.T) {
	results := []model.SearchResult{
		{ID: "first", Score: 0.8, Content: "same"},
		{ID: "second", Score: 0.8, Content: "same"},
	}
	ranked := Rerank("query", results, time.Now())
	require.Equal(t, "first", ranked[0].ID)
	require.Equal(t, "second", ranked[1].ID)
}

func TestDedupeByContentFirstWins(t *testing.T) {
	results := []model.SearchResult{
		{ID: "a", Content: "The  Quick   Brown Fox"},
		{ID: "b", Content: "the quick brown fox"},
		{ID: "c", Content: "entirely different content"},
	}
	out := dedupeByContent(results)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, "c", out[1].ID)
}

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"golang maps", "simple"},
		{"how do I tune postgres for heavy write workloads?", "medium"},
		{"what is the difference between redis and memcached for caching sessions and queues, and which is better than the other for a large deployment?", "complex"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, classifyComplexity(tt.query))
		})
	}
}

func TestSearchAdvancedMergesStrategies(t *testing.T) {
	store := &fakeQuerier{matches: []model.Match{
		match("a", 0.92, "shared content pool entry"),
		match("b", 0.85, "another distinct entry"),
	}}
	engine := NewEngine(&fakeEmbedder{dim: 4}, store)

	resp := engine.SearchAdvanced(context.Background(), "database indexing strategies", AdvancedOptions{TopK: 10})
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Semantic)
	require.NotEmpty(t, resp.Keyword)
	// both strategies return the same matches: dedupe keeps one copy each
	require.Len(t, resp.Combined, 2)
	require.NotEmpty(t, resp.Complexity)
}

func TestSearchAdvancedUnknownStrategy(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{dim: 4}, &fakeQuerier{})
	resp := engine.SearchAdvanced(context.Background(), "query terms", AdvancedOptions{
		Strategies: []string{"lexical-bm25"},
	})
	require.NotEmpty(t, resp.Errors)
	require.Contains(t, resp.Errors[0], "unknown strategy")
}

func TestSearchAdvancedSemanticOnly(t *testing.T) {
	store := &fakeQuerier{matches: []model.Match{match("a", 0.9, "content")}}
	engine := NewEngine(&fakeEmbedder{dim: 4}, store)

	resp := engine.SearchAdvanced(context.Background(), "query terms", AdvancedOptions{
		Strategies: []string{StrategySemantic},
	})
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Semantic)
	require.Empty(t, resp.Keyword)
	require.Len(t, resp.Combined, 1)
}
