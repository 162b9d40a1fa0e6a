package maintain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/model"
	"github.com/xxxsen/kbase/internal/vecstore"
)

const (
	cleanupSampleCap = 5000
	minContentChars  = 10
	minValidYear     = 2000
)

// CleanupReport counts are advisory in the same statistical sense as stats:
// they cover the drawn sample, not the whole index.
type CleanupReport struct {
	DryRun         bool `json:"dry_run"`
	SampleSize     int  `json:"sample_size"`
	ShortContent   int  `json:"short_content"`
	Duplicates     int  `json:"duplicates"`
	InvalidStamps  int  `json:"invalid_timestamps"`
	RecordsDeleted int  `json:"records_deleted"`
	RecordsPatched int  `json:"records_patched"`
}

// cleanup flags short/empty chunks, duplicate chunks (first occurrence wins)
// and missing or invalid timestamps. With dryRun set it only counts; nothing
// mutates the store.
func (e *Engine) cleanup(ctx context.Context, opts Options, res *OpResult) error {
	logger := logutil.GetLogger(ctx)
	limit := opts.SampleLimit
	if limit <= 0 || limit > cleanupSampleCap {
		limit = cleanupSampleCap
	}
	sample, err := e.drawSample(ctx, limit, nil)
	if err != nil {
		return err
	}
	report := &CleanupReport{DryRun: opts.DryRun, SampleSize: sample.Size()}

	var toDelete []string
	var toPatch []vecstore.MetadataPatch
	seenHashes := make(map[string]struct{}, sample.Size())
	now := time.Now().UTC().Format(time.RFC3339)

	for _, m := range sample.Records {
		meta := model.MetadataFromMap(m.Metadata)
		if opts.RemoveShortContent && len(strings.TrimSpace(meta.Content)) < minContentChars {
			report.ShortContent++
			toDelete = append(toDelete, m.ID)
			continue
		}
		if opts.RemoveDuplicates && meta.Content != "" {
			hash := contentHash(meta.Content)
			if _, ok := seenHashes[hash]; ok {
				report.Duplicates++
				toDelete = append(toDelete, m.ID)
				continue
			}
			seenHashes[hash] = struct{}{}
		}
		if opts.FixTimestamps && invalidTimestamp(meta) {
			report.InvalidStamps++
			patched := make(map[string]any, len(m.Metadata)+1)
			for k, v := range m.Metadata {
				patched[k] = v
			}
			patched[model.MetaTimestamp] = now
			toPatch = append(toPatch, vecstore.MetadataPatch{ID: m.ID, Metadata: patched})
		}
	}

	if !opts.DryRun {
		if len(toDelete) > 0 {
			deleted, err := e.store.SafeDelete(ctx, toDelete)
			if err != nil {
				return err
			}
			report.RecordsDeleted = deleted
		}
		if len(toPatch) > 0 {
			patched, err := e.store.SafeUpdate(ctx, toPatch)
			if err != nil {
				return err
			}
			report.RecordsPatched = patched
		}
	}

	res.Data = report
	if opts.DryRun {
		res.Message = "dry run: counts computed, nothing mutated"
	}
	logger.Info("cleanup finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("short_content", report.ShortContent),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("invalid_timestamps", report.InvalidStamps),
	)
	return nil
}

// contentHash normalizes the full chunk content before hashing so trivially
// reformatted duplicates collide.
func contentHash(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func invalidTimestamp(meta model.RecordMetadata) bool {
	if meta.Timestamp == "" {
		return true
	}
	ts, err := time.Parse(time.RFC3339, meta.Timestamp)
	if err != nil {
		return true
	}
	return ts.Year() <= minValidYear
}
