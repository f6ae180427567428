// Package domain holds the per-category strategies used to shape provider
// queries and filter listings for price comparison.
package domain

import (
	"sort"

	"shopping-agent/internal/models"
)

// Entities are structured facets pulled from free text, e.g. family=iphone gen=15.
type Entities map[string]string

// Price normalization failure reasons.
const (
	ReasonInstallmentOnly = "installment_only"
	ReasonConditionBad    = "condition_bad"
	ReasonMissingPrice    = "missing_price"
)

// Relaxation strategies a profile may permit.
const (
	FallbackRelaxModelSuffix     = "relax_model_suffix"
	FallbackSoftscoreRelaxSuffix = "softscore_relax_suffix"
)

type PriceResult struct {
	OK     bool
	Price  float64
	Reason string
}

// Detection is the outcome of scoring text against a profile's signals.
type Detection struct {
	Profile  string   `json:"profile"`
	Score    float64  `json:"score"`
	Evidence []string `json:"evidence"`
}

// FallbackSet lists the relaxation strategies a profile permits.
type FallbackSet map[string]bool

func newFallbackSet(names ...string) FallbackSet {
	s := make(FallbackSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func (f FallbackSet) Allows(name string) bool { return f[name] }

func (f FallbackSet) Names() []string {
	out := make([]string, 0, len(f))
	for n := range f {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Profile is the capability set every domain strategy implements.
type Profile interface {
	Name() string
	Detect(text string) Detection
	PreprocessQueries(text string, prefs models.Prefs) []string
	EntityExtract(text string) Entities
	FilterModel(l models.RawListing, e Entities, strict bool) bool
	NormalizePrice(l models.RawListing) PriceResult
	KeepAfterAccessory(l models.RawListing, isAccessoryIntent bool) bool
	DedupKey(title string, l models.RawListing, e Entities) string
	SoftScore(l models.RawListing, e Entities, priceOK bool) float64
	FallbackPlan() FallbackSet
	ParseDocIDs(rawURL string) (productID, offerID string)
}
