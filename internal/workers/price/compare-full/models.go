// internal/workers/price/compare-full/models.go
package comparefull

import (
	"shopping-agent/internal/domain"
	"shopping-agent/internal/models"
)

// Drop reasons tallied in Diagnostics.Reasons.
const (
	ReasonModelMismatch   = "model_mismatch"
	ReasonMissingRequired = "missing_required"
	ReasonAccessory       = "accessory"
	ReasonDuplicate       = "duplicate"
)

var reasonKeys = []string{
	ReasonModelMismatch,
	domain.ReasonInstallmentOnly,
	ReasonAccessory,
	ReasonMissingRequired,
	domain.ReasonMissingPrice,
	domain.ReasonConditionBad,
	ReasonDuplicate,
}

type Input struct {
	Text     string       `json:"text"`
	Region   string       `json:"region"`
	Currency string       `json:"currency"`
	Prefs    models.Prefs `json:"prefs"`
}

type Output struct {
	Items       []models.CompareItem `json:"items"`
	Diagnostics *Diagnostics         `json:"diagnostics"`
	Debug       *Debug               `json:"debug,omitempty"`
}

type AutoDetect struct {
	Score    float64  `json:"score"`
	Evidence []string `json:"evidence"`
}

// Diagnostics are stage counts and drop tallies. They are informational only.
type Diagnostics struct {
	Domain             string          `json:"domain"`
	Raw                int             `json:"raw"`
	RoundSizes         []int           `json:"round_sizes"`
	KeptAfterModel     int             `json:"kept_after_model"`
	KeptAfterPricing   int             `json:"kept_after_pricing"`
	KeptAfterAccessory int             `json:"kept_after_accessory"`
	KeptAfterDedup     int             `json:"kept_after_dedup"`
	Final              int             `json:"final"`
	Reasons            map[string]int  `json:"reasons"`
	Fallbacks          []string        `json:"fallbacks"`
	AutoDetect         *AutoDetect     `json:"auto_detect,omitempty"`
	Entity             domain.Entities `json:"entity"`
	ProviderErrors     []string        `json:"provider_errors"`
}

func newDiagnostics(profile string, entities domain.Entities) *Diagnostics {
	reasons := make(map[string]int, len(reasonKeys))
	for _, k := range reasonKeys {
		reasons[k] = 0
	}
	if entities == nil {
		entities = domain.Entities{}
	}
	return &Diagnostics{
		Domain:         profile,
		RoundSizes:     []int{},
		Reasons:        reasons,
		Fallbacks:      []string{},
		Entity:         entities,
		ProviderErrors: []string{},
	}
}

// Debug is filled only when prefs.debug is set.
type Debug struct {
	Queries        []string          `json:"queries"`
	StageRecords   StageRecords      `json:"stage_records"`
	KeptTitles     KeptTitles        `json:"kept_titles"`
	DedupKeys      []DedupRecord     `json:"dedup_keys"`
	ParsedIDs      []ParsedID        `json:"parsed_ids"`
	ConditionFlags []ConditionRecord `json:"condition_flags"`
}

type StageRecords struct {
	ModelDrop     []DropRecord `json:"model_drop"`
	PricingDrop   []DropRecord `json:"pricing_drop"`
	AccessoryDrop []DropRecord `json:"accessory_drop"`
	DedupDrop     []DropRecord `json:"dedup_drop"`
}

type DropRecord struct {
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason"`
}

type KeptTitles struct {
	A []string `json:"A"`
	B []string `json:"B"`
	C []string `json:"C"`
	D []string `json:"D"`
}

type DedupRecord struct {
	Title string `json:"title"`
	Key   string `json:"key"`
}

type ConditionRecord struct {
	Title    string   `json:"title"`
	Provider string   `json:"provider"`
	Flags    []string `json:"flags"`
}

type ParsedID struct {
	Title     string `json:"title"`
	ProductID string `json:"product_id"`
	OfferID   string `json:"offer_id"`
}

func newDebug(queries []string) *Debug {
	return &Debug{
		Queries: queries,
		StageRecords: StageRecords{
			ModelDrop:     []DropRecord{},
			PricingDrop:   []DropRecord{},
			AccessoryDrop: []DropRecord{},
			DedupDrop:     []DropRecord{},
		},
		KeptTitles: KeptTitles{
			A: []string{},
			B: []string{},
			C: []string{},
			D: []string{},
		},
		DedupKeys:      []DedupRecord{},
		ParsedIDs:      []ParsedID{},
		ConditionFlags: []ConditionRecord{},
	}
}
