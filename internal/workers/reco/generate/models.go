// internal/workers/reco/generate/models.go
package recogenerate

import "shopping-agent/internal/models"

const (
	FallbackURL    = "https://example.com/fallback"
	FallbackReason = "fallback item due to missing fields in provider data"
)

// Alias keys accepted from the recommendation collaborator.
var (
	titleKeys    = []string{"title", "name", "product", "label"}
	urlKeys      = []string{"url", "link", "product_url", "href"}
	reasonKeys   = []string{"reason", "why", "rationale", "explain"}
	currencyKeys = []string{"currency", "curr"}
)

type Input struct {
	Goal   string   `json:"goal"`
	Budget *float64 `json:"budget"`
	TopK   int      `json:"topk"`
	Trial  bool     `json:"trial,omitempty"`
}

type Output struct {
	Items         []models.RecommendItem `json:"items"`
	RationaleTopK []string               `json:"rationale_topk"`
}

// Generation is the loosely typed answer of the recommendation API.
type Generation struct {
	Items         []interface{} `json:"items"`
	RationaleTopK interface{}   `json:"rationale_topk"`
	Reasoning     interface{}   `json:"reasoning"`
}

// Listings returns the items as field bags. Bare strings become titles.
func (g *Generation) Listings() []models.RawListing {
	out := make([]models.RawListing, 0, len(g.Items))
	for _, it := range g.Items {
		switch t := it.(type) {
		case map[string]interface{}:
			out = append(out, models.RawListing(t))
		case models.RawListing:
			out = append(out, t)
		case string:
			out = append(out, models.RawListing{"title": t})
		}
	}
	return out
}

// Rationale flattens rationale_topk, falling back to reasoning.
func (g *Generation) Rationale() []string {
	for _, v := range []interface{}{g.RationaleTopK, g.Reasoning} {
		if out := toStrings(v); len(out) > 0 {
			return out
		}
	}
	return []string{}
}

func toStrings(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}
