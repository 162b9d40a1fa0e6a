package ingest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/chunker"
	"github.com/xxxsen/kbase/internal/extract"
	"github.com/xxxsen/kbase/internal/filestore"
	"github.com/xxxsen/kbase/internal/model"
	appErr "github.com/xxxsen/kbase/internal/pkg/errors"
	"github.com/xxxsen/kbase/internal/vecstore"
)

const (
	shortContentChars = 50
	hugeContentChars  = 1_000_000
)

// sensitivePatterns flag content hygiene issues. Matches produce warnings,
// never block ingestion.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)api[ _-]?key`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)\btoken\b`),
}

type Request struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Source   string  `json:"source"`
	Content  string  `json:"content"`
	FilePath string  `json:"file_path"`
	Options  Options `json:"options"`
}

type Options struct {
	ChunkSize       int  `json:"chunk_size"`
	ChunkOverlap    int  `json:"chunk_overlap"`
	ExtractMetadata bool `json:"extract_metadata"`
	ValidateContent bool `json:"validate_content"`
}

type Result struct {
	Success       bool                   `json:"success"`
	Title         string                 `json:"title"`
	ChunksIndexed int                    `json:"chunks_indexed"`
	BatchCount    int                    `json:"batch_count"`
	AvgChunkSize  int                    `json:"avg_chunk_size"`
	Metadata      *model.ContentMetadata `json:"metadata,omitempty"`
	FileMetadata  *model.FileMetadata    `json:"file_metadata,omitempty"`
	Warnings      []string               `json:"warnings,omitempty"`
	Errors        []string               `json:"errors,omitempty"`
}

type BatchResult struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Results   []*Result `json:"results"`
}

// IUpserter is the slice of the store adapter the pipeline writes through.
type IUpserter interface {
	SafeUpsert(ctx context.Context, records []model.VectorRecord) (int, error)
}

type EngineConfig struct {
	ChunkSize    int
	ChunkOverlap int
	UpsertBatch  int
}

// Engine composes chunking, embedding and the store adapter into the
// ingestion pipeline. Upserts across batches are not transactional: a failure
// partway through leaves earlier batches committed, and the result says so.
type Engine struct {
	embedder ai.IEmbedder
	store    IUpserter
	source   filestore.Source
	cfg      EngineConfig
}

func NewEngine(embedder ai.IEmbedder, store IUpserter, source filestore.Source, cfg EngineConfig) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.UpsertBatch <= 0 {
		cfg.UpsertBatch = 100
	}
	return &Engine{embedder: embedder, store: store, source: source, cfg: cfg}
}

// Ingest runs the full pipeline for one document. Failures are reported
// in-band: the result always comes back, with Success=false and Errors set
// when anything went wrong.
func (e *Engine) Ingest(ctx context.Context, req Request) *Result {
	logger := logutil.GetLogger(ctx).With(zap.String("title", req.Title))
	res := &Result{Title: req.Title}

	if strings.TrimSpace(req.Title) == "" {
		return fail(res, fmt.Errorf("%w: title is required", appErr.ErrInvalid))
	}

	content := req.Content
	if content == "" && req.FilePath != "" {
		data, err := e.source.Read(ctx, req.FilePath)
		if err != nil {
			return fail(res, err)
		}
		text, fileMeta, err := extract.Text(req.FilePath, data)
		if err != nil {
			return fail(res, err)
		}
		content = text
		res.FileMetadata = &fileMeta
	}

	if req.Options.ValidateContent {
		if strings.TrimSpace(content) == "" {
			return fail(res, fmt.Errorf("%w: content is empty", appErr.ErrInvalid))
		}
		res.Warnings = append(res.Warnings, validateContent(content)...)
	}
	if strings.TrimSpace(content) == "" {
		return fail(res, fmt.Errorf("%w: content is empty", appErr.ErrInvalid))
	}

	chunkSize := req.Options.ChunkSize
	if chunkSize <= 0 {
		chunkSize = e.cfg.ChunkSize
	}
	overlap := req.Options.ChunkOverlap
	if overlap <= 0 {
		overlap = e.cfg.ChunkOverlap
	}
	chunks := chunker.Chunk(content, chunkSize, overlap)
	if len(chunks) == 0 {
		return fail(res, fmt.Errorf("%w: chunking produced no chunks", appErr.ErrInvalid))
	}

	var contentMeta model.ContentMetadata
	if req.Options.ExtractMetadata {
		contentMeta = chunker.ExtractMetadata(content)
		res.Metadata = &contentMeta
	}

	vectors, err := e.embedder.EmbedBatch(ctx, chunks, ai.TaskRetrievalDocument)
	if err != nil {
		return fail(res, err)
	}

	records := e.buildRecords(req, chunks, vectors, contentMeta, time.Now())
	batches, err := e.store.SafeUpsert(ctx, records)
	res.BatchCount = batches
	res.ChunksIndexed = committedRecords(batches, e.cfg.UpsertBatch, len(records))
	if err != nil {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("partial upsert: %d of %d batches committed before failure", batches, (len(records)+e.cfg.UpsertBatch-1)/e.cfg.UpsertBatch))
		return fail(res, err)
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	res.AvgChunkSize = total / len(chunks)
	res.Success = true
	logger.Info("document ingested",
		zap.Int("chunks", res.ChunksIndexed),
		zap.Int("batches", res.BatchCount),
		zap.Int("avg_chunk_size", res.AvgChunkSize),
	)
	return res
}

// IngestBatch sequences documents with an inter-document delay. One failed
// document never aborts the batch; failures are tallied per document.
func (e *Engine) IngestBatch(ctx context.Context, docs []Request, pace time.Duration) *BatchResult {
	batch := &BatchResult{Total: len(docs)}
	for i, doc := range docs {
		if i > 0 && pace > 0 {
			select {
			case <-ctx.Done():
				batch.Results = append(batch.Results, fail(&Result{Title: doc.Title}, ctx.Err()))
				batch.Failed++
				continue
			case <-time.After(pace):
			}
		}
		res := e.Ingest(ctx, doc)
		batch.Results = append(batch.Results, res)
		if res.Success {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}
	return batch
}

func (e *Engine) buildRecords(req Request, chunks []string, vectors [][]float32, contentMeta model.ContentMetadata, now time.Time) []model.VectorRecord {
	timestamp := now.UTC().Format(time.RFC3339)
	slug := slugify(req.Title)
	records := make([]model.VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		meta := model.RecordMetadata{
			Title:       req.Title,
			Category:    req.Category,
			Source:      req.Source,
			Content:     chunk,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			Timestamp:   timestamp,
			WordCount:   len(strings.Fields(chunk)),
		}
		if req.Options.ExtractMetadata {
			meta.ReadingTime = contentMeta.ReadingTime
			meta.Topics = contentMeta.Topics
			meta.Summary = contentMeta.Summary
		}
		records = append(records, model.VectorRecord{
			ID:       fmt.Sprintf("%s-%d-%d", slug, i, now.UnixMilli()),
			Values:   vectors[i],
			Metadata: meta.ToMap(),
		})
	}
	return records
}

func validateContent(content string) []string {
	var warnings []string
	if len(content) < shortContentChars {
		warnings = append(warnings, fmt.Sprintf("content is very short (%d chars)", len(content)))
	}
	if len(content) > hugeContentChars {
		warnings = append(warnings, fmt.Sprintf("content is very large (%d chars), ingestion may be slow", len(content)))
	}
	for _, pattern := range sensitivePatterns {
		if loc := pattern.FindString(content); loc != "" {
			warnings = append(warnings, fmt.Sprintf("content may contain sensitive data (matched %q)", strings.ToLower(loc)))
		}
	}
	return warnings
}

func committedRecords(batches, batchSize, total int) int {
	committed := batches * batchSize
	if committed > total {
		committed = total
	}
	return committed
}

func fail(res *Result, err error) *Result {
	res.Success = false
	res.Errors = append(res.Errors, err.Error())
	return res
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// Ensure the adapter satisfies the consumer interface.
var _ IUpserter = (*vecstore.Adapter)(nil)
