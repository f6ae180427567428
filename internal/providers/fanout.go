// internal/providers/fanout.go
package providers

import (
	"context"
	"errors"

	"shopping-agent/internal/common/metrics"
	"shopping-agent/internal/models"

	"golang.org/x/sync/errgroup"
)

// FanoutSource queries every source concurrently and concatenates results in
// source order. It fails only when every source fails.
type FanoutSource struct {
	sources []Source
	logger  Logger
}

func NewFanoutSource(log Logger, sources ...Source) *FanoutSource {
	return &FanoutSource{
		sources: sources,
		logger: log.With(map[string]interface{}{
			"component": "provider_fanout",
		}),
	}
}

func (f *FanoutSource) Name() string {
	if len(f.sources) == 1 {
		return f.sources[0].Name()
	}
	return "fanout"
}

func (f *FanoutSource) Search(ctx context.Context, query, region, currency string, prefs models.Prefs) ([]models.RawListing, error) {
	results := make([][]models.RawListing, len(f.sources))
	errs := make([]error, len(f.sources))

	var g errgroup.Group
	for i, src := range f.sources {
		i, src := i, src
		g.Go(func() error {
			listings, err := src.Search(ctx, query, region, currency, prefs)
			if err != nil {
				errs[i] = err
				metrics.ProviderErrors.WithLabelValues(src.Name()).Inc()
				f.logger.Warn("provider search failed", map[string]interface{}{
					"provider": src.Name(),
					"query":    query,
					"error":    err.Error(),
				})
				return nil
			}
			results[i] = listings
			return nil
		})
	}
	_ = g.Wait()

	var (
		out    []models.RawListing
		failed int
	)
	for i := range f.sources {
		if errs[i] != nil {
			failed++
			continue
		}
		out = append(out, results[i]...)
	}
	if len(f.sources) > 0 && failed == len(f.sources) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
