package model

import (
	"encoding/json"
	"time"
)

// Metadata keys shared by every record written during ingestion.
// The index has no secondary key on document identity, so the metadata must
// always be enough to reconstruct which document and chunk position a record
// belongs to.
const (
	MetaTitle       = "title"
	MetaCategory    = "category"
	MetaSource      = "source"
	MetaContent     = "content"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaTimestamp   = "timestamp"
	MetaWordCount   = "word_count"
)

// VectorRecord is the unit persisted in the vector index.
type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata"`
}

// RecordMetadata is the typed view of a record's metadata map.
type RecordMetadata struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Source      string   `json:"source"`
	Content     string   `json:"content"`
	ChunkIndex  int      `json:"chunk_index"`
	TotalChunks int      `json:"total_chunks"`
	Timestamp   string   `json:"timestamp"`
	WordCount   int      `json:"word_count"`
	ReadingTime int      `json:"reading_time,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// ToMap converts typed metadata into the flat map the index service stores.
func (m RecordMetadata) ToMap() map[string]any {
	data, err := json.Marshal(m)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// MetadataFromMap parses a record metadata map back into the typed view.
// Unknown keys are ignored, missing keys are zero values.
func MetadataFromMap(raw map[string]any) RecordMetadata {
	var m RecordMetadata
	data, err := json.Marshal(raw)
	if err != nil {
		return m
	}
	_ = json.Unmarshal(data, &m)
	return m
}

// ParseTimestamp parses a record timestamp, returning a zero time when the
// value is absent or unparseable.
func (m RecordMetadata) ParseTimestamp() time.Time {
	if m.Timestamp == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}
