package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/ai"
	"github.com/xxxsen/kbase/internal/config"
	"github.com/xxxsen/kbase/internal/embedcache"
	"github.com/xxxsen/kbase/internal/filestore"
	"github.com/xxxsen/kbase/internal/ingest"
	"github.com/xxxsen/kbase/internal/job"
	"github.com/xxxsen/kbase/internal/maintain"
	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/retrieval"
	"github.com/xxxsen/kbase/internal/schedule"
	"github.com/xxxsen/kbase/internal/vecstore"
)

type engines struct {
	ingest    *ingest.Engine
	retrieval *retrieval.Engine
	maintain  *maintain.Engine
	adapter   *vecstore.Adapter
	cfg       *config.Config
}

func buildEngines(configPath string) (*engines, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	var embedder ai.IEmbedder = ai.NewEmbedder(provider, ai.EmbedderConfig{
		Model:     cfg.AI.Model,
		Dimension: cfg.AI.Dimension,
		BatchSize: cfg.AI.BatchSize,
		Pace:      time.Duration(cfg.AI.PaceMs) * time.Millisecond,
	})
	embedder = embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.AI.CacheSize,
		time.Duration(cfg.AI.CacheTTLMin)*time.Minute,
	)

	client := vecstore.NewClient(vecstore.ClientConfig{
		BaseURL:    cfg.Index.BaseURL,
		ControlURL: cfg.Index.ControlURL,
		APIKey:     cfg.Index.APIKey,
	})
	adapter := vecstore.NewAdapter(client, vecstore.AdapterConfig{
		IndexName:   cfg.Index.Name,
		UpsertBatch: cfg.Index.UpsertBatch,
		Pace:        time.Duration(cfg.Index.PaceMs) * time.Millisecond,
	})

	source, err := filestore.New(cfg.FileSource)
	if err != nil {
		return nil, fmt.Errorf("init file source: %w", err)
	}

	ingestEngine := ingest.NewEngine(embedder, adapter, source, ingest.EngineConfig{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
		UpsertBatch:  cfg.Index.UpsertBatch,
	})
	retrievalEngine := retrieval.NewEngine(embedder, adapter)
	maintainEngine := maintain.NewEngine(adapter, ingestEngine, cfg.Index.Dimension)

	return &engines{
		ingest:    ingestEngine,
		retrieval: retrievalEngine,
		maintain:  maintainEngine,
		adapter:   adapter,
		cfg:       cfg,
	}, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "kbase",
		Short: "knowledge base pipeline",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	var (
		title, category, source, content, filePath string
		validate, extractMeta                      bool
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "chunk, embed and index a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := eng.adapter.EnsureIndex(ctx, eng.cfg.Index.Dimension, eng.cfg.Index.Metric); err != nil {
				return err
			}
			res := eng.ingest.Ingest(ctx, ingest.Request{
				Title:    title,
				Category: category,
				Source:   source,
				Content:  content,
				FilePath: filePath,
				Options: ingest.Options{
					ValidateContent: validate,
					ExtractMetadata: extractMeta,
				},
			})
			return printJSON(res)
		},
	}
	ingestCmd.Flags().StringVar(&title, "title", "", "document title")
	ingestCmd.Flags().StringVar(&category, "category", "", "document category")
	ingestCmd.Flags().StringVar(&source, "source", "", "document source label")
	ingestCmd.Flags().StringVar(&content, "content", "", "inline document content")
	ingestCmd.Flags().StringVar(&filePath, "file", "", "document file path (txt/md/html/json/pdf)")
	ingestCmd.Flags().BoolVar(&validate, "validate", true, "validate content before indexing")
	ingestCmd.Flags().BoolVar(&extractMeta, "metadata", true, "extract advisory content metadata")

	var (
		batchFile string
		paceMs    int
	)
	ingestBatchCmd := &cobra.Command{
		Use:   "ingest-batch",
		Short: "ingest a JSON array of documents sequentially",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines(configPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(batchFile)
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}
			var docs []model.Document
			if err := json.Unmarshal(data, &docs); err != nil {
				return fmt.Errorf("decode batch file: %w", err)
			}
			reqs := make([]ingest.Request, 0, len(docs))
			for _, doc := range docs {
				reqs = append(reqs, ingest.Request{
					Title:    doc.Title,
					Category: doc.Category,
					Source:   doc.Source,
					Content:  doc.Content,
					FilePath: doc.FilePath,
					Options: ingest.Options{
						ValidateContent: validate,
						ExtractMetadata: extractMeta,
					},
				})
			}
			ctx := cmd.Context()
			if err := eng.adapter.EnsureIndex(ctx, eng.cfg.Index.Dimension, eng.cfg.Index.Metric); err != nil {
				return err
			}
			return printJSON(eng.ingest.IngestBatch(ctx, reqs, time.Duration(paceMs)*time.Millisecond))
		},
	}
	ingestBatchCmd.Flags().StringVar(&batchFile, "file", "", "JSON file holding an array of documents")
	ingestBatchCmd.Flags().IntVar(&paceMs, "pace-ms", 1000, "delay between documents in milliseconds")

	var (
		query     string
		topK      int
		threshold float64
		advanced  bool
	)
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "similarity search over the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if advanced {
				return printJSON(eng.retrieval.SearchAdvanced(ctx, query, retrieval.AdvancedOptions{
					TopK:     topK,
					Category: category,
				}))
			}
			return printJSON(eng.retrieval.Search(ctx, query, retrieval.SearchOptions{
				TopK:      topK,
				Category:  category,
				Threshold: threshold,
			}))
		},
	}
	searchCmd.Flags().StringVar(&query, "query", "", "search query")
	searchCmd.Flags().IntVar(&topK, "top-k", 10, "maximum results (capped at 20)")
	searchCmd.Flags().Float64Var(&threshold, "threshold", 0.7, "minimum similarity score")
	searchCmd.Flags().StringVar(&category, "category", "", "category filter")
	searchCmd.Flags().BoolVar(&advanced, "advanced", false, "multi-strategy search with re-ranking")

	var (
		limit                   int
		ids                     []string
		confirm, dryRun         bool
		removeShort, removeDups bool
		fixStamps               bool
		newContent, metaJSON    string
		updateMode, filterJSON  string
		sortBy, sortOrder       string
		includeContent          bool
	)
	maintainCmd := &cobra.Command{
		Use:   "maintain <operation>",
		Short: "maintenance operations: stats, list, update, delete, cleanup, categories, search-by-metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines(configPath)
			if err != nil {
				return err
			}
			opts := maintain.Options{
				Title:              title,
				Category:           category,
				Source:             source,
				Limit:              limit,
				SampleLimit:        limit,
				SortBy:             sortBy,
				SortOrder:          sortOrder,
				IDs:                ids,
				ConfirmDeletion:    confirm,
				NewContent:         newContent,
				UpdateMode:         updateMode,
				DryRun:             dryRun,
				RemoveShortContent: removeShort,
				RemoveDuplicates:   removeDups,
				FixTimestamps:      fixStamps,
				IncludeContent:     includeContent,
			}
			if metaJSON != "" {
				if err := json.Unmarshal([]byte(metaJSON), &opts.NewMetadata); err != nil {
					return fmt.Errorf("decode --new-metadata: %w", err)
				}
			}
			if filterJSON != "" {
				if err := json.Unmarshal([]byte(filterJSON), &opts.Filter); err != nil {
					return fmt.Errorf("decode --filter: %w", err)
				}
			}
			return printJSON(eng.maintain.Execute(cmd.Context(), args[0], opts))
		},
	}
	maintainCmd.Flags().StringVar(&title, "title", "", "document title")
	maintainCmd.Flags().StringVar(&category, "category", "", "category filter")
	maintainCmd.Flags().StringVar(&source, "source", "", "source filter")
	maintainCmd.Flags().IntVar(&limit, "limit", 0, "result limit / sample limit")
	maintainCmd.Flags().StringVar(&sortBy, "sort-by", "title", "sort key: title, category, timestamp")
	maintainCmd.Flags().StringVar(&sortOrder, "sort-order", "asc", "sort order: asc, desc")
	maintainCmd.Flags().StringSliceVar(&ids, "ids", nil, "explicit record ids")
	maintainCmd.Flags().BoolVar(&confirm, "confirm", false, "confirm deletion")
	maintainCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute cleanup counts without mutating")
	maintainCmd.Flags().BoolVar(&removeShort, "remove-short", false, "cleanup: remove short/empty chunks")
	maintainCmd.Flags().BoolVar(&removeDups, "remove-duplicates", false, "cleanup: remove duplicate chunks")
	maintainCmd.Flags().BoolVar(&fixStamps, "fix-timestamps", false, "cleanup: backfill missing/invalid timestamps")
	maintainCmd.Flags().StringVar(&newContent, "new-content", "", "update: replacement content")
	maintainCmd.Flags().StringVar(&metaJSON, "new-metadata", "", "update: metadata patch as JSON object")
	maintainCmd.Flags().StringVar(&updateMode, "mode", "", "update mode: metadata-only, replace")
	maintainCmd.Flags().StringVar(&filterJSON, "filter", "", "search-by-metadata: equality filter as JSON object")
	maintainCmd.Flags().BoolVar(&includeContent, "include-content", false, "search-by-metadata: keep chunk content in matches")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "run scheduled maintenance jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := buildEngines(configPath)
			if err != nil {
				return err
			}
			if eng.cfg.Schedule.CleanupSpec == "" {
				return fmt.Errorf("schedule.cleanup_spec is required")
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler := schedule.NewCronScheduler()
			reportJob := job.NewCleanupReportJob(eng.maintain, eng.cfg.Schedule.CleanupSample)
			if err := scheduler.AddJob(reportJob, eng.cfg.Schedule.CleanupSpec); err != nil {
				return err
			}
			scheduler.Start(ctx)
			logutil.GetLogger(ctx).Info("scheduler running", zap.String("cleanup_spec", eng.cfg.Schedule.CleanupSpec))
			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}

	rootCmd.AddCommand(ingestCmd, ingestBatchCmd, searchCmd, maintainCmd, scheduleCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}
