// internal/models/listing.go
package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var amountPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// Alias keys tried, in order, when reading loosely typed provider records.
var (
	TitleKeys    = []string{"title", "name"}
	URLKeys      = []string{"url", "link", "product_link", "href"}
	SubtitleKeys = []string{"subtitle", "snippet", "description"}
	PriceKeys    = []string{"extracted_price", "price", "sale_price", "amount"}
	ProviderKeys = []string{"provider", "source"}
)

// RawListing is a provider-returned record. Fields are optional and loosely typed;
// accessors treat missing, null and blank values as absent.
type RawListing map[string]interface{}

// Value returns the first present, non-empty value among keys.
func (l RawListing) Value(keys ...string) (interface{}, bool) {
	for _, k := range keys {
		v, ok := l[k]
		if !ok || isEmpty(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

func (l RawListing) Str(keys ...string) string {
	v, ok := l.Value(keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns the first parseable amount among keys.
func (l RawListing) Float(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := ParseAmount(l[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func (l RawListing) Bool(keys ...string) bool {
	for _, k := range keys {
		switch t := l[k].(type) {
		case bool:
			if t {
				return true
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(t)) {
			case "true", "yes", "1":
				return true
			}
		}
	}
	return false
}

func (l RawListing) Title() string    { return l.Str(TitleKeys...) }
func (l RawListing) URL() string      { return l.Str(URLKeys...) }
func (l RawListing) Subtitle() string { return l.Str(SubtitleKeys...) }

// Text is the lowercased title and subtitle, the surface most matchers inspect.
func (l RawListing) Text() string {
	return strings.ToLower(strings.TrimSpace(l.Title() + " " + l.Subtitle()))
}

func (l RawListing) Provider() string {
	if p := l.Str(ProviderKeys...); p != "" {
		return p
	}
	return "unknown"
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	}
	return false
}

// ParseAmount reads a number from a numeric value or from the first number in a
// string, ignoring thousands separators ("$1,299.00" -> 1299).
func ParseAmount(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		m := amountPattern.FindString(strings.ReplaceAll(t, ",", ""))
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// CompareItem is a normalized price-comparison result.
type CompareItem struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Currency string   `json:"currency"`
	Price    float64  `json:"price"`
	Shipping *float64 `json:"shipping"`
	Tax      *float64 `json:"tax"`
	Provider string   `json:"provider"`
}

// RecommendItem is a normalized recommendation.
type RecommendItem struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Reason   string   `json:"reason"`
	Price    *float64 `json:"price"`
	Currency string   `json:"currency"`
	Fallback bool     `json:"fallback,omitempty"`
}
