package model

// Relevance buckets derived from a similarity score.
const (
	RelevanceHigh    = "high"
	RelevanceMedium  = "medium"
	RelevanceLow     = "low"
	RelevanceMinimal = "minimal"
)

// RelevanceLevel maps a similarity score in [0,1] to a coarse bucket.
func RelevanceLevel(score float64) string {
	switch {
	case score >= 0.9:
		return RelevanceHigh
	case score >= 0.8:
		return RelevanceMedium
	case score >= 0.7:
		return RelevanceLow
	default:
		return RelevanceMinimal
	}
}

// Match is a raw nearest-neighbor hit returned by the index service.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// SearchResult is a match annotated for callers.
type SearchResult struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	RerankScore float64 `json:"rerank_score,omitempty"`
	Relevance   string  `json:"relevance"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Source      string  `json:"source"`
	Content     string  `json:"content"`
	ChunkIndex  int     `json:"chunk_index"`
	Timestamp   string  `json:"timestamp"`
}

// ResultFromMatch builds an annotated search result from a raw match.
func ResultFromMatch(m Match) SearchResult {
	meta := MetadataFromMap(m.Metadata)
	return SearchResult{
		ID:         m.ID,
		Score:      m.Score,
		Relevance:  RelevanceLevel(m.Score),
		Title:      meta.Title,
		Category:   meta.Category,
		Source:     meta.Source,
		Content:    meta.Content,
		ChunkIndex: meta.ChunkIndex,
		Timestamp:  meta.Timestamp,
	}
}
