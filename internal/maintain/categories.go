package maintain

import (
	"context"
	"sort"

	"github.com/xxxsen/kbase/internal/model"
)

const categoriesSampleCap = 2000

type CategoryStat struct {
	Category       string   `json:"category"`
	EstimatedTotal int      `json:"estimated_total"`
	SampleCount    int      `json:"sample_count"`
	Sources        []string `json:"sources"`
	LastUpdated    string   `json:"last_updated"`
}

type CategoriesReport struct {
	Categories  []CategoryStat `json:"categories"`
	SampleSize  int            `json:"sample_size"`
	ScaleFactor float64        `json:"scale_factor"`
	Estimated   bool           `json:"estimated"`
}

func (e *Engine) categories(ctx context.Context, opts Options, res *OpResult) error {
	limit := opts.SampleLimit
	if limit <= 0 || limit > categoriesSampleCap {
		limit = categoriesSampleCap
	}
	sample, err := e.drawSample(ctx, limit, nil)
	if err != nil {
		return err
	}

	type bucket struct {
		count       int
		sources     map[string]struct{}
		lastUpdated string
	}
	buckets := make(map[string]*bucket)
	for _, m := range sample.Records {
		meta := model.MetadataFromMap(m.Metadata)
		cat := orUnknown(meta.Category)
		b, ok := buckets[cat]
		if !ok {
			b = &bucket{sources: map[string]struct{}{}}
			buckets[cat] = b
		}
		b.count++
		if meta.Source != "" {
			b.sources[meta.Source] = struct{}{}
		}
		if meta.Timestamp > b.lastUpdated {
			b.lastUpdated = meta.Timestamp
		}
	}

	stats := make([]CategoryStat, 0, len(buckets))
	for cat, b := range buckets {
		sources := make([]string, 0, len(b.sources))
		for s := range b.sources {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		stats = append(stats, CategoryStat{
			Category:       cat,
			EstimatedTotal: int(float64(b.count)*sample.ScaleFactor + 0.5),
			SampleCount:    b.count,
			Sources:        sources,
			LastUpdated:    b.lastUpdated,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].EstimatedTotal != stats[j].EstimatedTotal {
			return stats[i].EstimatedTotal > stats[j].EstimatedTotal
		}
		return stats[i].Category < stats[j].Category
	})

	res.Data = &CategoriesReport{
		Categories:  stats,
		SampleSize:  sample.Size(),
		ScaleFactor: sample.ScaleFactor,
		Estimated:   true,
	}
	res.Message = "totals are sampling-based estimates"
	return nil
}
