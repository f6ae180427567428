// internal/domain/base.go
package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"shopping-agent/internal/models"
)

var (
	installmentPattern = regexp.MustCompile(`(?i)(instal+ments?|/\s*mo\b|/\s*month|per\s+month|monthly|\b\d+\s*x\s*\$|\bx\s*\d+\s*(months|payments)|afterpay|zip\s*pay|klarna|humm|layby|lay-by)`)
	productPathPattern = regexp.MustCompile(`/product/(\d+)`)
	docIDTokenPattern  = regexp.MustCompile(`(pid|oid|offer_docid|productid):(\d+)`)
	nonAlnumPattern    = regexp.MustCompile(`[^a-z0-9]+`)
	spacesPattern      = regexp.MustCompile(`\s+`)
	noisePattern       = regexp.MustCompile(`(?i)\b(price|prices|pricing|cheapest|cheap|lowest|best\s+deals?|deals?|compare|comparison|where\s+to\s+buy|buy|online|sale|in\s+australia|australia|near\s+me|how\s+much\s+is|how\s+much)\b`)
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "for": true, "of": true, "in": true, "on": true,
	"to": true, "with": true, "and": true, "or": true, "me": true, "my": true, "i": true,
	"is": true, "are": true, "find": true, "show": true, "get": true, "want": true,
	"need": true, "please": true, "what": true, "where": true, "which": true, "vs": true,
	"price": true, "prices": true, "cheapest": true, "cheap": true, "best": true,
	"deal": true, "deals": true, "compare": true, "buy": true, "online": true,
	"sale": true, "lowest": true, "au": true, "australia": true, "under": true,
	"below": true, "how": true, "much": true,
}

// signal is one weighted detection pattern.
type signal struct {
	label   string
	pattern *regexp.Regexp
	weight  float64
}

// baseProfile carries the behavior shared by all profiles; concrete profiles
// embed it and override what differs.
type baseProfile struct {
	name         string
	signals      []signal
	badCondition *regexp.Regexp
	accessory    *regexp.Regexp
	fallbacks    FallbackSet
}

func (b *baseProfile) Name() string { return b.name }

func (b *baseProfile) Detect(text string) Detection {
	lower := strings.ToLower(text)
	det := Detection{Profile: b.name, Evidence: []string{}}
	for _, s := range b.signals {
		if m := s.pattern.FindString(lower); m != "" {
			det.Score += s.weight
			det.Evidence = append(det.Evidence, fmt.Sprintf("%s:%s", s.label, strings.TrimSpace(m)))
		}
	}
	return det
}

// NormalizePrice rejects installment-only and bad-condition offers, then
// requires a positive cash price.
func (b *baseProfile) NormalizePrice(l models.RawListing) PriceResult {
	priceText := l.Str("price", "price_raw", "price_text")
	if l.Bool("installment", "is_installment") || installmentPattern.MatchString(priceText) {
		return PriceResult{Reason: ReasonInstallmentOnly}
	}
	if b.badCondition != nil {
		condition := strings.ToLower(l.Str("condition", "second_hand_condition", "item_condition"))
		if b.badCondition.MatchString(condition) || b.badCondition.MatchString(strings.ToLower(l.Title())) {
			return PriceResult{Reason: ReasonConditionBad}
		}
	}
	price, ok := l.Float(models.PriceKeys...)
	if !ok || price <= 0 {
		return PriceResult{Reason: ReasonMissingPrice}
	}
	return PriceResult{OK: true, Price: price}
}

// ConditionFlags reports which bad-condition markers a listing carries; used for debug output only.
func (b *baseProfile) ConditionFlags(l models.RawListing) []string {
	if b.badCondition == nil {
		return nil
	}
	text := strings.ToLower(l.Str("condition", "second_hand_condition", "item_condition") + " " + l.Title())
	return b.badCondition.FindAllString(text, -1)
}

func (b *baseProfile) KeepAfterAccessory(l models.RawListing, isAccessoryIntent bool) bool {
	if isAccessoryIntent {
		return true
	}
	if l.Bool("is_accessory", "accessory") {
		return false
	}
	if b.accessory == nil {
		return true
	}
	return !b.accessory.MatchString(strings.ToLower(l.Title()))
}

func (b *baseProfile) FallbackPlan() FallbackSet { return b.fallbacks }

// ParseDocIDs reads product and offer ids from shopping URLs such as
// /shopping/product/123?prds=pid:123,oid:456 or ?product_id=..&offer_docid=...
func (b *baseProfile) ParseDocIDs(rawURL string) (productID, offerID string) {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return "", ""
	}
	if m := productPathPattern.FindStringSubmatch(u.Path); m != nil {
		productID = m[1]
	}
	q := u.Query()
	for _, k := range []string{"product_id", "productid", "pid"} {
		if productID == "" && q.Get(k) != "" {
			productID = q.Get(k)
		}
	}
	for _, k := range []string{"offer_docid", "offerid", "oid"} {
		if offerID == "" && q.Get(k) != "" {
			offerID = q.Get(k)
		}
	}
	for _, m := range docIDTokenPattern.FindAllStringSubmatch(q.Get("prds"), -1) {
		switch m[1] {
		case "pid", "productid":
			if productID == "" {
				productID = m[2]
			}
		case "oid", "offer_docid":
			if offerID == "" {
				offerID = m[2]
			}
		}
	}
	return productID, offerID
}

// DedupKey prefers provider ids, then a normalized title+price signature.
func (b *baseProfile) DedupKey(title string, l models.RawListing, _ Entities) string {
	return b.idOrSignature(l, normalizeTitle(title))
}

func (b *baseProfile) idOrSignature(l models.RawListing, signature string) string {
	productID, offerID := b.ParseDocIDs(l.URL())
	if productID != "" {
		return "product:" + productID
	}
	if offerID != "" {
		return "offer:" + offerID
	}
	if price, ok := l.Float(models.PriceKeys...); ok {
		signature = fmt.Sprintf("%s|%.2f", signature, price)
	}
	return "sig:" + signature
}

// SoftScore is the share of entity values present in the listing text.
func (b *baseProfile) SoftScore(l models.RawListing, e Entities, priceOK bool) float64 {
	text := l.Text()
	score := 0.0
	for _, v := range e {
		if v != "" && containsPhrase(text, v) {
			score++
		}
	}
	if priceOK {
		score += 0.5
	}
	return score
}

// keywordMatch is the token-overlap fallback used when no structured facets were extracted.
func keywordMatch(text string, words []string, strict bool) bool {
	if len(words) == 0 {
		return true
	}
	hits := 0
	for _, w := range words {
		if containsPhrase(text, w) {
			hits++
		}
	}
	if strict {
		return float64(hits) >= 0.6*float64(len(words))
	}
	return hits > 0
}

// cleanQuery strips shopping noise words and collapses whitespace.
func cleanQuery(text string) string {
	out := noisePattern.ReplaceAllString(text, " ")
	out = strings.Trim(spacesPattern.ReplaceAllString(out, " "), " ?!.,")
	if out == "" {
		return strings.TrimSpace(text)
	}
	return out
}

// keywords returns significant lowercase tokens of text in order, without duplicates.
func keywords(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(nonAlnumPattern.ReplaceAllString(strings.ToLower(text), " ")) {
		if stopwords[tok] || seen[tok] || (len(tok) < 2 && !isDigits(tok)) {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizeTitle(title string) string {
	return strings.TrimSpace(nonAlnumPattern.ReplaceAllString(strings.ToLower(title), " "))
}

// containsPhrase matches phrase against text on token boundaries.
func containsPhrase(text, phrase string) bool {
	p := normalizeTitle(phrase)
	if p == "" {
		return false
	}
	return strings.Contains(" "+normalizeTitle(text)+" ", " "+p+" ")
}

// uniqueQueries drops blanks and case-insensitive repeats, keeping order.
func uniqueQueries(qs ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, q := range qs {
		q = strings.TrimSpace(spacesPattern.ReplaceAllString(q, " "))
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

func firstMatch(p *regexp.Regexp, text string) string {
	m := p.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
