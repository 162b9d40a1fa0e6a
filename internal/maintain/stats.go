package maintain

import (
	"context"

	"github.com/xxxsen/kbase/internal/model"
)

const statsSampleCap = 1000

// StatsReport carries extrapolated figures. Every count is an estimate scaled
// from the sample; only TotalVectors is authoritative.
type StatsReport struct {
	TotalVectors   int            `json:"total_vectors"`
	SampleSize     int            `json:"sample_size"`
	ScaleFactor    float64        `json:"scale_factor"`
	Estimated      bool           `json:"estimated"`
	Categories     map[string]int `json:"categories"`
	Sources        map[string]int `json:"sources"`
	Months         map[string]int `json:"months"`
	AvgContentSize float64        `json:"avg_content_size"`
	AvgWordCount   float64        `json:"avg_word_count"`
}

func (e *Engine) stats(ctx context.Context, opts Options, res *OpResult) error {
	limit := opts.SampleLimit
	if limit <= 0 || limit > statsSampleCap {
		limit = statsSampleCap
	}
	sample, err := e.drawSample(ctx, limit, nil)
	if err != nil {
		return err
	}
	report := &StatsReport{
		TotalVectors: sample.TotalVectors,
		SampleSize:   sample.Size(),
		ScaleFactor:  sample.ScaleFactor,
		Estimated:    true,
		Categories:   map[string]int{},
		Sources:      map[string]int{},
		Months:       map[string]int{},
	}
	if sample.Size() == 0 {
		res.Data = report
		res.Message = "index is empty"
		return nil
	}

	totalContent := 0
	totalWords := 0
	for _, m := range sample.Records {
		meta := model.MetadataFromMap(m.Metadata)
		report.Categories[orUnknown(meta.Category)]++
		report.Sources[orUnknown(meta.Source)]++
		if ts := meta.ParseTimestamp(); !ts.IsZero() {
			report.Months[ts.Format("2006-01")]++
		}
		totalContent += len(meta.Content)
		totalWords += meta.WordCount
	}
	extrapolate(report.Categories, sample.ScaleFactor)
	extrapolate(report.Sources, sample.ScaleFactor)
	extrapolate(report.Months, sample.ScaleFactor)
	report.AvgContentSize = float64(totalContent) / float64(sample.Size())
	report.AvgWordCount = float64(totalWords) / float64(sample.Size())

	res.Data = report
	res.Message = "figures are sampling-based estimates, not exact counts"
	return nil
}

func extrapolate(histogram map[string]int, scale float64) {
	for key, count := range histogram {
		histogram[key] = int(float64(count)*scale + 0.5)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
