package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
)

const (
	StrategySemantic = "semantic"
	StrategyKeyword  = "keyword"

	exactMatchBoost   = 0.1
	recencyBoost      = 0.05
	officialBoost     = 0.05
	recencyWindowDays = 30

	dedupPrefixChars = 100
	minKeywordLength = 3
)

var queryStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "how": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "with": {}, "this": {}, "that": {}, "from": {},
	"does": {}, "has": {}, "have": {}, "was": {}, "were": {}, "will": {},
}

type AdvancedOptions struct {
	Strategies []string `json:"strategies"`
	TopK       int      `json:"top_k"`
	Category   string   `json:"category"`
}

type AdvancedResponse struct {
	Success    bool                 `json:"success"`
	Query      string               `json:"query"`
	Complexity string               `json:"complexity"`
	Semantic   []model.SearchResult `json:"semantic,omitempty"`
	Keyword    []model.SearchResult `json:"keyword,omitempty"`
	Combined   []model.SearchResult `json:"combined"`
	Errors     []string             `json:"errors,omitempty"`
}

// SearchAdvanced runs the requested strategies, deduplicates across them and
// re-ranks the merged pool. The keyword strategy has no lexical index behind
// it: it re-issues a semantic search using the joined keyword string as a
// proxy query, a deliberate approximation.
func (e *Engine) SearchAdvanced(ctx context.Context, query string, opts AdvancedOptions) *AdvancedResponse {
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))
	resp := &AdvancedResponse{
		Query:      query,
		Complexity: classifyComplexity(query),
	}
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = []string{StrategySemantic, StrategyKeyword}
	}
	topK := clampTopK(opts.TopK)

	for _, strategy := range strategies {
		switch strategy {
		case StrategySemantic:
			sub := e.Search(ctx, query, SearchOptions{TopK: topK, Category: opts.Category})
			if !sub.Success {
				resp.Errors = append(resp.Errors, sub.Errors...)
				continue
			}
			resp.Semantic = sub.Results
		case StrategyKeyword:
			keywords := ExtractKeywords(query)
			if len(keywords) == 0 {
				continue
			}
			sub := e.Search(ctx, strings.Join(keywords, " "), SearchOptions{TopK: topK, Category: opts.Category})
			if !sub.Success {
				resp.Errors = append(resp.Errors, sub.Errors...)
				continue
			}
			resp.Keyword = sub.Results
		default:
			resp.Errors = append(resp.Errors, "unknown strategy: "+strategy)
		}
	}
	if len(resp.Semantic) == 0 && len(resp.Keyword) == 0 && len(resp.Errors) > 0 {
		return resp
	}

	pool := dedupeByContent(append(append([]model.SearchResult{}, resp.Semantic...), resp.Keyword...))
	resp.Combined = Rerank(query, pool, time.Now())
	if len(resp.Combined) > topK {
		resp.Combined = resp.Combined[:topK]
	}
	resp.Success = true
	logger.Debug("advanced search completed",
		zap.Strings("strategies", strategies),
		zap.String("complexity", resp.Complexity),
		zap.Int("combined", len(resp.Combined)),
	)
	return resp
}

// ExtractKeywords pulls non-stopword tokens from the query for the keyword
// proxy strategy.
func ExtractKeywords(query string) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		token := strings.TrimFunc(word, func(r rune) bool {
			return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
		})
		if len(token) < minKeywordLength {
			continue
		}
		if _, ok := queryStopwords[token]; ok {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

// Rerank re-scores results by similarity plus heuristic boosts: exact
// query-word matches, recency within 30 days, and a trusted-source label.
// Scores clamp at 1.0. Sort is stable on the original order for equal scores.
func Rerank(query string, results []model.SearchResult, now time.Time) []model.SearchResult {
	queryWords := strings.Fields(strings.ToLower(query))
	reranked := make([]model.SearchResult, len(results))
	copy(reranked, results)
	for i := range reranked {
		score := reranked[i].Score
		score += exactMatchBoost * float64(countExactMatches(queryWords, reranked[i].Content))
		if isRecent(reranked[i].Timestamp, now) {
			score += recencyBoost
		}
		if strings.Contains(strings.ToLower(reranked[i].Source), "official") {
			score += officialBoost
		}
		if score > 1.0 {
			score = 1.0
		}
		reranked[i].RerankScore = score
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].RerankScore > reranked[j].RerankScore
	})
	return reranked
}

func countExactMatches(queryWords []string, content string) int {
	contentWords := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(content)) {
		contentWords[strings.Trim(word, ".,!?;:\"'()[]")]++
	}
	count := 0
	for _, qw := range queryWords {
		count += contentWords[strings.Trim(qw, ".,!?;:\"'()[]")]
	}
	return count
}

func isRecent(timestamp string, now time.Time) bool {
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return false
	}
	return now.Sub(ts) <= recencyWindowDays*24*time.Hour
}

// dedupeByContent drops results whose normalized content prefix was already
// seen; the first occurrence wins.
func dedupeByContent(results []model.SearchResult) []model.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		key := contentPrefixHash(r.Content)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func contentPrefixHash(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	if len(normalized) > dedupPrefixChars {
		normalized = normalized[:dedupPrefixChars]
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// classifyComplexity buckets a query into simple/medium/complex. Informational
// only; it never affects ranking.
func classifyComplexity(query string) string {
	words := strings.Fields(query)
	signals := 0
	if len(words) > 8 {
		signals++
	}
	if len(words) > 15 {
		signals++
	}
	if strings.Contains(query, "?") {
		signals++
	}
	lower := strings.ToLower(query)
	for _, marker := range []string{"versus", " vs ", "compare", "difference between", "better than"} {
		if strings.Contains(lower, marker) {
			signals++
			break
		}
	}
	for _, conj := range []string{" and ", " or ", " but "} {
		if strings.Contains(lower, conj) {
			signals++
			break
		}
	}
	switch {
	case signals <= 1:
		return "simple"
	case signals <= 3:
		return "medium"
	default:
		return "complex"
	}
}
