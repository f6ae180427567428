// internal/providers/shopping.go
package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "shopping-agent/internal/common/errors"
	httpclient "shopping-agent/internal/common/http"
	"shopping-agent/internal/models"
)

const ShoppingSourceName = "shopping_api"

type ShoppingConfig struct {
	BaseURL    string
	APIKey     string
	Engine     string
	Timeout    time.Duration
	MaxResults int
}

// ShoppingSource queries a SerpAPI-style shopping results endpoint.
type ShoppingSource struct {
	cfg    ShoppingConfig
	client *httpclient.Client
}

func NewShoppingSource(cfg ShoppingConfig) *ShoppingSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 40
	}
	if cfg.Engine == "" {
		cfg.Engine = "google_shopping"
	}
	return &ShoppingSource{cfg: cfg, client: httpclient.NewClient(cfg.Timeout)}
}

func (s *ShoppingSource) Name() string { return ShoppingSourceName }

type shoppingResponse struct {
	ShoppingResults       []models.RawListing `json:"shopping_results"`
	InlineShoppingResults []models.RawListing `json:"inline_shopping_results"`
	Error                 string              `json:"error"`
}

func (s *ShoppingSource) Search(ctx context.Context, query, region, currency string, prefs models.Prefs) ([]models.RawListing, error) {
	num := s.cfg.MaxResults
	// max_results only narrows the provider request for trial runs; regular
	// requests cap emitted items after deduplication instead.
	if n, ok := prefs.Int("max_results"); ok && prefs.Bool("trial") && n > 0 && n < num {
		num = n
	}

	params := url.Values{}
	params.Set("engine", s.cfg.Engine)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(num))
	if region != "" {
		params.Set("gl", strings.ToLower(region))
	}
	if currency != "" {
		params.Set("currency", strings.ToUpper(currency))
	}
	if s.cfg.APIKey != "" {
		params.Set("api_key", s.cfg.APIKey)
	}

	var resp shoppingResponse
	if err := s.client.GetJSON(ctx, strings.TrimRight(s.cfg.BaseURL, "?")+"?"+params.Encode(), nil, &resp); err != nil {
		if httpclient.IsTimeout(err) {
			return nil, apperrors.NewProviderTimeoutError(ShoppingSourceName, err)
		}
		return nil, apperrors.NewProviderUnavailableError(ShoppingSourceName, err)
	}
	if resp.Error != "" && !strings.Contains(strings.ToLower(resp.Error), "hasn't returned any results") {
		return nil, apperrors.NewProviderUnavailableError(ShoppingSourceName, &httpclient.StatusError{StatusCode: 200, Body: resp.Error})
	}

	listings := append(resp.ShoppingResults, resp.InlineShoppingResults...)
	if len(listings) > num {
		listings = listings[:num]
	}
	return listings, nil
}
