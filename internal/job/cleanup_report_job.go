package job

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/kbase/internal/maintain"
)

// CleanupReportJob periodically runs a dry-run cleanup and logs the estimated
// counts. It never mutates the store; removal stays an explicit operator
// action.
type CleanupReportJob struct {
	engine      *maintain.Engine
	sampleLimit int
}

func NewCleanupReportJob(engine *maintain.Engine, sampleLimit int) *CleanupReportJob {
	return &CleanupReportJob{engine: engine, sampleLimit: sampleLimit}
}

func (j *CleanupReportJob) Name() string {
	return "cleanup_report"
}

func (j *CleanupReportJob) Run(ctx context.Context) error {
	if j.engine == nil {
		return nil
	}
	res := j.engine.Execute(ctx, maintain.OpCleanup, maintain.Options{
		DryRun:             true,
		RemoveShortContent: true,
		RemoveDuplicates:   true,
		FixTimestamps:      true,
		SampleLimit:        j.sampleLimit,
	})
	if !res.Success {
		return fmt.Errorf("cleanup dry run failed: %v", res.Errors)
	}
	report, ok := res.Data.(*maintain.CleanupReport)
	if !ok {
		return nil
	}
	logutil.GetLogger(ctx).Info("cleanup report",
		zap.Int("sample_size", report.SampleSize),
		zap.Int("short_content", report.ShortContent),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("invalid_timestamps", report.InvalidStamps),
	)
	return nil
}
