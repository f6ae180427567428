// Package providers fetches raw shopping listings from external sources.
// Sources return no error for an empty result; errors mean the source itself
// could not be reached or answered malformed data.
package providers

import (
	"context"

	"shopping-agent/internal/models"
)

type Source interface {
	Name() string
	Search(ctx context.Context, query, region, currency string, prefs models.Prefs) ([]models.RawListing, error)
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// StaticSource serves a fixed listing set, used for local runs and tests.
type StaticSource struct {
	SourceName string
	Listings   map[string][]models.RawListing
	Err        error
}

func (s *StaticSource) Name() string {
	if s.SourceName == "" {
		return "static"
	}
	return s.SourceName
}

func (s *StaticSource) Search(ctx context.Context, query, _, _ string, _ models.Prefs) ([]models.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Listings[query], nil
}
