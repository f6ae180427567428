// internal/workers/price/compare-full/stages.go
package comparefull

import (
	"regexp"
	"sort"
	"strings"

	"shopping-agent/internal/common/metrics"
	"shopping-agent/internal/domain"
	"shopping-agent/internal/models"
)

const (
	stageRaw       = "raw"
	stageModel     = "model"
	stagePricing   = "pricing"
	stageAccessory = "accessory"
	stageDedup     = "dedup"
)

// candidate is a listing that cleared the price gate, with its comparable fields.
type candidate struct {
	listing models.RawListing
	title   string
	url     string
	price   float64
}

// conditionFlagger is implemented by profiles that can explain a condition drop.
type conditionFlagger interface {
	ConditionFlags(l models.RawListing) []string
}

// run holds the state of one pipeline invocation. The profile never changes
// within a run.
type run struct {
	profile         domain.Profile
	entities        domain.Entities
	minResults      int
	accessoryIntent bool
	diag            *Diagnostics
	debug           *Debug

	iphoneGen *regexp.Regexp
	galaxyGen *regexp.Regexp
}

func newRun(profile domain.Profile, entities domain.Entities, minResults int, accessoryIntent bool, diag *Diagnostics, debug *Debug) *run {
	r := &run{
		profile:         profile,
		entities:        entities,
		minResults:      minResults,
		accessoryIntent: accessoryIntent,
		diag:            diag,
		debug:           debug,
	}
	if gen := entities["gen"]; gen != "" {
		g := regexp.QuoteMeta(strings.ToLower(gen))
		r.iphoneGen = regexp.MustCompile(`\biphone\s*` + g + `\b`)
		r.galaxyGen = regexp.MustCompile(`\bs\s*-?\s*` + g + `\b`)
	}
	return r
}

// execute runs stages A through D over raw and returns the emitted items.
func (r *run) execute(raw []models.RawListing, currency string) []models.CompareItem {
	r.diag.Raw = len(raw)
	metrics.CompareStageItems.WithLabelValues(stageRaw).Observe(float64(len(raw)))

	matched := r.modelGate(raw)
	r.diag.KeptAfterModel = len(matched)
	metrics.CompareStageItems.WithLabelValues(stageModel).Observe(float64(len(matched)))

	priced := r.priceGate(matched)
	r.diag.KeptAfterPricing = len(priced)
	metrics.CompareStageItems.WithLabelValues(stagePricing).Observe(float64(len(priced)))

	kept := r.accessoryGate(priced)
	r.diag.KeptAfterAccessory = len(kept)
	metrics.CompareStageItems.WithLabelValues(stageAccessory).Observe(float64(len(kept)))

	unique := r.dedup(kept)
	r.diag.KeptAfterDedup = len(unique)
	metrics.CompareStageItems.WithLabelValues(stageDedup).Observe(float64(len(unique)))

	items := make([]models.CompareItem, 0, len(unique))
	for _, c := range unique {
		items = append(items, toItem(c, currency))
	}
	return items
}

// modelGate is stage A: required fields, then model matching with the
// profile's relaxation fallbacks.
func (r *run) modelGate(raw []models.RawListing) []models.RawListing {
	valid := make([]models.RawListing, 0, len(raw))
	for _, l := range raw {
		if l.Title() == "" || l.URL() == "" {
			r.tally(ReasonMissingRequired)
			r.recordDrop(stageModel, l, ReasonMissingRequired)
			continue
		}
		valid = append(valid, l)
	}

	fallbacks := r.profile.FallbackPlan()
	kept := r.filterModel(valid, true)
	if len(kept) < r.minResults && fallbacks.Allows(domain.FallbackRelaxModelSuffix) {
		kept = r.filterModel(valid, false)
		r.diag.Fallbacks = append(r.diag.Fallbacks, domain.FallbackRelaxModelSuffix)
	}
	if r.profile.Name() == domain.PhoneName && len(kept) < r.minResults && fallbacks.Allows(domain.FallbackSoftscoreRelaxSuffix) {
		kept = r.softscoreBackfill(valid, kept)
		r.diag.Fallbacks = append(r.diag.Fallbacks, domain.FallbackSoftscoreRelaxSuffix)
	}

	in := make(map[int]bool, len(kept))
	for _, i := range kept {
		in[i] = true
	}
	for i, l := range valid {
		if !in[i] {
			r.tally(ReasonModelMismatch)
			r.recordDrop(stageModel, l, ReasonModelMismatch)
		}
	}

	out := make([]models.RawListing, 0, len(kept))
	for _, i := range kept {
		out = append(out, valid[i])
		r.recordKept(stageModel, valid[i].Title())
	}
	return out
}

func (r *run) filterModel(valid []models.RawListing, strict bool) []int {
	kept := []int{}
	for i, l := range valid {
		if r.profile.FilterModel(l, r.entities, strict) {
			kept = append(kept, i)
		}
	}
	return kept
}

// softscoreBackfill admits family/generation-compatible listings not yet kept,
// best soft score first, skipping dedup keys already present, until the
// threshold is met. Existing survivors keep their order.
func (r *run) softscoreBackfill(valid []models.RawListing, kept []int) []int {
	family := strings.ToLower(r.entities["family"])

	in := make(map[int]bool, len(kept))
	seen := make(map[string]bool, len(kept))
	for _, i := range kept {
		in[i] = true
		seen[r.profile.DedupKey(valid[i].Title(), valid[i], r.entities)] = true
	}

	type scored struct {
		idx   int
		score float64
	}
	var pool []scored
	for i, l := range valid {
		if in[i] || !r.familyCompatible(l, family) {
			continue
		}
		priceOK := r.profile.NormalizePrice(l).OK
		pool = append(pool, scored{idx: i, score: r.profile.SoftScore(l, r.entities, priceOK)})
	}
	sort.SliceStable(pool, func(a, b int) bool { return pool[a].score > pool[b].score })

	for _, c := range pool {
		if len(kept) >= r.minResults {
			break
		}
		key := r.profile.DedupKey(valid[c.idx].Title(), valid[c.idx], r.entities)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, c.idx)
	}
	return kept
}

// familyCompatible is the backfill's own family/generation check. It is
// looser than FilterModel and deliberately kept separate from it. An empty
// family matches any listing.
func (r *run) familyCompatible(l models.RawListing, family string) bool {
	text := strings.ToLower(l.Title() + " " + l.Subtitle())
	if family != "" && !strings.Contains(text, family) {
		return false
	}
	if r.iphoneGen != nil && strings.Contains(text, "iphone") && !r.iphoneGen.MatchString(text) {
		return false
	}
	if r.galaxyGen != nil && strings.Contains(text, "galaxy") && !r.galaxyGen.MatchString(text) {
		return false
	}
	return true
}

// priceGate is stage B.
func (r *run) priceGate(listings []models.RawListing) []candidate {
	out := make([]candidate, 0, len(listings))
	flagger, canFlag := r.profile.(conditionFlagger)
	for _, l := range listings {
		if r.debug != nil && canFlag {
			if flags := flagger.ConditionFlags(l); len(flags) > 0 {
				r.debug.ConditionFlags = append(r.debug.ConditionFlags, ConditionRecord{
					Title:    l.Title(),
					Provider: l.Provider(),
					Flags:    flags,
				})
			}
		}
		res := r.profile.NormalizePrice(l)
		if !res.OK {
			r.tally(res.Reason)
			r.recordDrop(stagePricing, l, res.Reason)
			continue
		}
		out = append(out, candidate{listing: l, title: l.Title(), url: l.URL(), price: res.Price})
		r.recordKept(stagePricing, l.Title())
	}
	return out
}

// accessoryGate is stage C.
func (r *run) accessoryGate(cands []candidate) []candidate {
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if !r.profile.KeepAfterAccessory(c.listing, r.accessoryIntent) {
			r.tally(ReasonAccessory)
			r.recordDrop(stageAccessory, c.listing, ReasonAccessory)
			continue
		}
		out = append(out, c)
		r.recordKept(stageAccessory, c.title)
	}
	return out
}

// dedup is stage D: the first occurrence of each key wins, later ones drop.
func (r *run) dedup(cands []candidate) []candidate {
	out := make([]candidate, 0, len(cands))
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		if r.debug != nil {
			productID, offerID := r.profile.ParseDocIDs(c.url)
			r.debug.ParsedIDs = append(r.debug.ParsedIDs, ParsedID{Title: c.title, ProductID: productID, OfferID: offerID})
		}
		key := r.profile.DedupKey(c.title, c.listing, r.entities)
		if seen[key] {
			r.tally(ReasonDuplicate)
			r.recordDrop(stageDedup, c.listing, ReasonDuplicate)
			continue
		}
		seen[key] = true
		out = append(out, c)
		if r.debug != nil {
			r.debug.DedupKeys = append(r.debug.DedupKeys, DedupRecord{Title: c.title, Key: key})
		}
		r.recordKept(stageDedup, c.title)
	}
	return out
}

func (r *run) tally(reason string) {
	r.diag.Reasons[reason]++
	metrics.CompareDrops.WithLabelValues(reason).Inc()
}

func (r *run) recordDrop(stage string, l models.RawListing, reason string) {
	if r.debug == nil {
		return
	}
	rec := DropRecord{Title: l.Title(), URL: l.URL(), Reason: reason}
	switch stage {
	case stageModel:
		r.debug.StageRecords.ModelDrop = append(r.debug.StageRecords.ModelDrop, rec)
	case stagePricing:
		r.debug.StageRecords.PricingDrop = append(r.debug.StageRecords.PricingDrop, rec)
	case stageAccessory:
		r.debug.StageRecords.AccessoryDrop = append(r.debug.StageRecords.AccessoryDrop, rec)
	case stageDedup:
		r.debug.StageRecords.DedupDrop = append(r.debug.StageRecords.DedupDrop, rec)
	}
}

func (r *run) recordKept(stage, title string) {
	if r.debug == nil {
		return
	}
	switch stage {
	case stageModel:
		r.debug.KeptTitles.A = append(r.debug.KeptTitles.A, title)
	case stagePricing:
		r.debug.KeptTitles.B = append(r.debug.KeptTitles.B, title)
	case stageAccessory:
		r.debug.KeptTitles.C = append(r.debug.KeptTitles.C, title)
	case stageDedup:
		r.debug.KeptTitles.D = append(r.debug.KeptTitles.D, title)
	}
}

func toItem(c candidate, currency string) models.CompareItem {
	item := models.CompareItem{
		Title:    c.title,
		URL:      c.url,
		Currency: c.listing.Str("currency", "curr"),
		Price:    c.price,
		Provider: c.listing.Provider(),
	}
	if item.Currency == "" {
		item.Currency = currency
	}
	if item.Currency == "" {
		item.Currency = "AUD"
	}
	if v, ok := c.listing.Float("shipping", "shipping_cost", "delivery"); ok {
		item.Shipping = &v
	}
	if v, ok := c.listing.Float("tax", "taxes"); ok {
		item.Tax = &v
	}
	return item
}
