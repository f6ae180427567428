// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	ToolPriceCompareFull = "price.compare_full"
	ToolRecoGenerate     = "reco.generate"
)

func LoadCatalog(path string) (*ToolCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog ToolCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse tool catalog %s: %w", path, err)
	}
	return &catalog, nil
}

// LoadOrDefault reads the catalog at path, falling back to the built-in
// catalog when the file does not exist.
func LoadOrDefault(path string) (*ToolCatalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	catalog, err := LoadCatalog(path)
	if os.IsNotExist(err) {
		return DefaultCatalog(), nil
	}
	return catalog, err
}

func SaveCatalog(catalog *ToolCatalog, path string) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

func (c *ToolCatalog) Find(id string) (*ToolSpec, bool) {
	for i := range c.Tools {
		if c.Tools[i].ID == id {
			return &c.Tools[i], true
		}
	}
	return nil, false
}

// DefaultCatalog describes the built-in tools and their I/O contracts.
func DefaultCatalog() *ToolCatalog {
	return &ToolCatalog{
		Version:     "1.0.0",
		LastUpdated: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Tools: []ToolSpec{
			{
				ID:          ToolPriceCompareFull,
				DisplayName: "Price Compare (Full)",
				Description: "Queries shopping providers, filters listings through the domain profile and returns deduplicated priced offers.",
				Category:    "price",
				Version:     "1.0.0",
				Status:      "verified",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"text"},
					"properties": map[string]interface{}{
						"text":     map[string]interface{}{"type": "string", "minLength": 1},
						"region":   map[string]interface{}{"type": "string"},
						"currency": map[string]interface{}{"type": "string"},
						"prefs":    map[string]interface{}{"type": "object"},
					},
				},
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"items"},
					"properties": map[string]interface{}{
						"items": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"title", "url", "currency", "price", "provider"},
								"properties": map[string]interface{}{
									"title":    map[string]interface{}{"type": "string"},
									"url":      map[string]interface{}{"type": "string"},
									"currency": map[string]interface{}{"type": "string"},
									"price":    map[string]interface{}{"type": "number"},
									"shipping": map[string]interface{}{"type": []interface{}{"number", "null"}},
									"tax":      map[string]interface{}{"type": []interface{}{"number", "null"}},
									"provider": map[string]interface{}{"type": "string"},
								},
							},
						},
						"diagnostics": map[string]interface{}{"type": "object"},
						"debug":       map[string]interface{}{"type": "object"},
					},
				},
				ErrorCodes: []string{"PROVIDER_UNAVAILABLE", "PROVIDER_TIMEOUT", "SEARCH_QUERY_FAILED"},
				Timeout:    "20s",
				Skills:     []string{"price_compare"},
				Tags:       []string{"shopping", "price"},
			},
			{
				ID:          ToolRecoGenerate,
				DisplayName: "Recommendation Generate",
				Description: "Produces product recommendations for a goal with an optional budget.",
				Category:    "reco",
				Version:     "1.0.0",
				Status:      "verified",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"goal"},
					"properties": map[string]interface{}{
						"goal":   map[string]interface{}{"type": "string", "minLength": 1},
						"budget": map[string]interface{}{"type": []interface{}{"number", "null"}},
						"topk":   map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 50},
						"trial": map[string]interface{}{"type": "boolean"},
					},
				},
				OutputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"items"},
					"properties": map[string]interface{}{
						"items": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type":     "object",
								"required": []interface{}{"title", "url"},
								"properties": map[string]interface{}{
									"title":    map[string]interface{}{"type": "string"},
									"url":      map[string]interface{}{"type": "string"},
									"reason":   map[string]interface{}{"type": "string"},
									"price":    map[string]interface{}{"type": []interface{}{"number", "null"}},
									"currency": map[string]interface{}{"type": "string"},
									"fallback": map[string]interface{}{"type": "boolean"},
								},
							},
						},
					},
				},
				ErrorCodes: []string{"RECOMMENDATION_FAILED", "RECOMMENDATION_TIMEOUT"},
				Timeout:    "15s",
				Skills:     []string{"recommendation"},
				Tags:       []string{"shopping", "recommendation"},
			},
		},
	}
}
