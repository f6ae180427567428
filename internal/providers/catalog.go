// internal/providers/catalog.go
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "shopping-agent/internal/common/errors"
	httpclient "shopping-agent/internal/common/http"
	"shopping-agent/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const CatalogSourceName = "catalog"

// CatalogSource searches an Elasticsearch index of merchant offers.
type CatalogSource struct {
	client     *elasticsearch.Client
	index      string
	maxResults int
}

func NewCatalogSource(client *elasticsearch.Client, index string, maxResults int) *CatalogSource {
	if maxResults <= 0 {
		maxResults = 40
	}
	return &CatalogSource{client: client, index: index, maxResults: maxResults}
}

func (s *CatalogSource) Name() string { return CatalogSourceName }

func buildCatalogQuery(query, region string) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  query,
					"fields": []string{"title^3", "subtitle", "brand", "category"},
					"type":   "best_fields",
				},
			},
		},
	}
	if region != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"region": strings.ToUpper(region)}},
		}
	}
	return map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}}
}

func (s *CatalogSource) Search(ctx context.Context, query, region, _ string, prefs models.Prefs) ([]models.RawListing, error) {
	size := s.maxResults
	// max_results only narrows the provider request for trial runs; regular
	// requests cap emitted items after deduplication instead.
	if n, ok := prefs.Int("max_results"); ok && prefs.Bool("trial") && n > 0 && n < size {
		size = n
	}

	body, err := json.Marshal(buildCatalogQuery(query, region))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if httpclient.IsTimeout(err) {
			return nil, apperrors.NewProviderTimeoutError(CatalogSourceName, err)
		}
		return nil, apperrors.NewProviderUnavailableError(CatalogSourceName, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewProviderUnavailableError(CatalogSourceName,
			apperrors.NewSearchFailedError(s.index, fmt.Errorf("search query failed: %s", res.Status())))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.RawListing `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewProviderUnavailableError(CatalogSourceName, fmt.Errorf("decode response: %w", err))
	}

	listings := make([]models.RawListing, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		if hit.Source == nil {
			continue
		}
		if _, ok := hit.Source.Value(models.ProviderKeys...); !ok {
			hit.Source["source"] = CatalogSourceName
		}
		listings = append(listings, hit.Source)
	}
	return listings, nil
}
