// internal/domain/cosmetics.go
package domain

import (
	"regexp"
	"strings"

	"shopping-agent/internal/models"
)

const CosmeticsName = "cosmetics"

var (
	cosmeticsBrandPattern  = regexp.MustCompile(`\b(l'?or[eé]al|maybelline|clinique|est[eé]e\s+lauder|mac|nars|fenty(?:\s+beauty)?|the\s+ordinary|cerave|la\s+roche[- ]posay|neutrogena|olay|lanc[oô]me|dior|chanel|charlotte\s+tilbury|rare\s+beauty|nyx|revlon|benefit|urban\s+decay|kiehl'?s|drunk\s+elephant|sk-?ii|innisfree|cosrx|bioderma|elf)\b`)
	cosmeticsTypePattern   = regexp.MustCompile(`\b(lipsticks?|lip\s+gloss|lip\s+balm|lip\s+liner|foundation|concealer|mascara|eyeliner|eye\s*shadow|palette|blush|bronzer|highlighter|primer|setting\s+spray|setting\s+powder|powder|serum|moisturi[sz]er|cleanser|toner|sunscreen|sunblock|face\s+mask|sheet\s+mask|perfume|fragrance|eau\s+de\s+(?:parfum|toilette)|cologne|nail\s+polish|night\s+cream|eye\s+cream|cream)\b`)
	cosmeticsVolumePattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(ml|g|oz|fl\.?\s*oz)\b`)
	cosmeticsShadePattern  = regexp.MustCompile(`\b(?:shade|colou?r)\s+([a-z0-9-]+(?:\s+[a-z0-9-]+)?)|#\s*(\d{2,4})`)
	cosmeticsSPFPattern    = regexp.MustCompile(`\bspf\s*(\d{2})\b`)
	cosmeticsAccessory     = regexp.MustCompile(`\b(brush(?:es)?|sponges?|beauty\s+blender|blender|applicators?|organi[sz]ers?|makeup\s+bag|cosmetic\s+bag|vanity\s+case|mirror|travel\s+bottles?|empty\s+bottles?|refillable|pouch|dispenser|holder)\b`)
	cosmeticsBadCondition  = regexp.MustCompile(`\b(tester|unboxed|expired|used|opened|swatched|damaged\s+box)\b`)
)

type cosmeticsProfile struct {
	baseProfile
}

func newCosmeticsProfile() *cosmeticsProfile {
	return &cosmeticsProfile{baseProfile{
		name: CosmeticsName,
		signals: []signal{
			{"brand", cosmeticsBrandPattern, 2},
			{"type", cosmeticsTypePattern, 2},
			{"category", regexp.MustCompile(`\b(makeup|make-up|cosmetics?|skincare|skin\s+care|beauty)\b`), 2},
			{"volume", cosmeticsVolumePattern, 1},
			{"spf", cosmeticsSPFPattern, 1},
		},
		badCondition: cosmeticsBadCondition,
		accessory:    cosmeticsAccessory,
		fallbacks:    newFallbackSet(FallbackRelaxModelSuffix),
	}}
}

func (p *cosmeticsProfile) EntityExtract(text string) Entities {
	lower := strings.ToLower(text)
	e := Entities{}
	if brand := firstMatch(cosmeticsBrandPattern, lower); brand != "" {
		e["brand"] = normalizeCosmeticsBrand(brand)
	}
	if t := firstMatch(cosmeticsTypePattern, lower); t != "" {
		t = spacesPattern.ReplaceAllString(t, " ")
		if t == "lipsticks" {
			t = "lipstick"
		}
		e["type"] = t
	}
	if m := cosmeticsVolumePattern.FindStringSubmatch(lower); m != nil {
		e["volume"] = m[1] + strings.NewReplacer(" ", "", ".", "").Replace(m[2])
	}
	if m := cosmeticsShadePattern.FindStringSubmatch(lower); m != nil {
		if m[1] != "" {
			e["shade"] = m[1]
		} else {
			e["shade"] = m[2]
		}
	}
	if spf := firstMatch(cosmeticsSPFPattern, lower); spf != "" {
		e["spf"] = spf
	}
	return e
}

func normalizeCosmeticsBrand(b string) string {
	b = spacesPattern.ReplaceAllString(b, " ")
	r := strings.NewReplacer("'", "", "é", "e", "ô", "o", ".", "")
	return r.Replace(b)
}

func (p *cosmeticsProfile) PreprocessQueries(text string, _ models.Prefs) []string {
	e := p.EntityExtract(text)
	full := strings.Join(nonEmpty(e["brand"], e["type"], e["shade"], e["volume"]), " ")
	core := strings.Join(nonEmpty(e["brand"], e["type"]), " ")
	return uniqueQueries(cleanQuery(text), full, core)
}

// FilterModel: strict requires brand, product type, shade and a matching size
// when the title states one; relaxed accepts brand or type.
func (p *cosmeticsProfile) FilterModel(l models.RawListing, e Entities, strict bool) bool {
	text := normalizeCosmeticsBrand(l.Text())
	if e["brand"] == "" && e["type"] == "" {
		return keywordMatch(text, keywords(strings.Join(entityValues(e), " ")), strict)
	}
	brandOK := e["brand"] == "" || containsPhrase(text, e["brand"])
	typeOK := e["type"] == "" || containsPhrase(text, e["type"]) || containsPhrase(text, e["type"]+"s")
	if !strict {
		return (e["brand"] != "" && brandOK) || (e["type"] != "" && typeOK)
	}
	if !brandOK || !typeOK {
		return false
	}
	if e["shade"] != "" && !containsPhrase(text, e["shade"]) {
		return false
	}
	if e["volume"] != "" {
		if listing := p.EntityExtract(l.Title()); listing["volume"] != "" && listing["volume"] != e["volume"] {
			return false
		}
	}
	return true
}
