// internal/domain/fashion.go
package domain

import (
	"regexp"
	"strings"

	"shopping-agent/internal/models"
)

const FashionName = "fashion"

var (
	fashionBrandPattern  = regexp.MustCompile(`\b(nike|adidas|puma|new\s+balance|asics|converse|vans|reebok|zara|uniqlo|levi'?s|gucci|prada|lululemon|under\s+armour|the\s+north\s+face|north\s+face|patagonia|ralph\s+lauren|tommy\s+hilfiger|calvin\s+klein|dr\.?\s*martens|birkenstock|ugg|skechers|hoka|on\s+running)\b`)
	fashionTypePattern   = regexp.MustCompile(`\b(sneakers?|trainers?|running\s+shoes|shoes?|boots?|sandals?|heels|loafers|slides|dress(?:es)?|skirts?|jeans|pants|trousers|shorts|t-?shirts?|tees?|shirts?|polo|hoodies?|sweaters?|jumpers?|cardigans?|jackets?|coats?|puffer|blazers?|leggings|handbags?|tote\s+bags?)\b`)
	fashionModelPattern  = regexp.MustCompile(`\b(air\s*max\s*\d*|air\s*force\s*1|air\s*jordan\s*\d*|dunk\s+(?:low|high)|ultraboost|stan\s+smith|superstar|samba|gazelle|chuck\s+taylor|old\s+skool|gel[- ][a-z]+|9060|550|574|990v?\d?|501|511|clifton\s*\d*)\b`)
	fashionSizePattern   = regexp.MustCompile(`\b(?:size|sz|us|uk|eu)\s*(\d{1,2}(?:\.5)?|xxs|xs|s|m|l|xl|xxl)\b`)
	fashionColorPattern  = regexp.MustCompile(`\b(black|white|red|blue|green|grey|gray|navy|beige|brown|pink|purple|yellow|orange|cream|khaki|olive)\b`)
	fashionGenderPattern = regexp.MustCompile(`\b(men'?s|women'?s|mens|womens|kids|unisex|boys|girls)\b`)
	fashionAccessory     = regexp.MustCompile(`\b(laces|shoelaces|insoles?|shoe\s+(?:cleaner|care|trees?|horn|bag)|cleaning\s+kit|crease\s+protectors?|hangers?|garment\s+bag|patch(?:es)?|keychain|stickers?|charms?)\b`)
	fashionBadCondition  = regexp.MustCompile(`\b(used|pre-?loved|pre-?owned|worn|damaged|defect(?:ive)?|replica|fake)\b`)
)

var fashionTypeSynonyms = map[string]string{
	"sneaker": "sneakers", "trainer": "sneakers", "trainers": "sneakers", "running shoes": "sneakers",
	"shoe": "shoes", "boot": "boots", "sandal": "sandals",
	"dresses": "dress", "skirts": "skirt", "trousers": "pants",
	"tshirt": "t-shirt", "tshirts": "t-shirt", "t-shirts": "t-shirt", "tee": "t-shirt", "tees": "t-shirt",
	"shirts": "shirt", "hoodies": "hoodie", "sweaters": "sweater", "jumper": "sweater", "jumpers": "sweater",
	"cardigans": "cardigan", "jackets": "jacket", "coats": "coat", "blazers": "blazer",
	"handbags": "handbag", "tote bag": "handbag", "tote bags": "handbag",
}

// typeVariants lists the spellings accepted for a canonical garment type.
func fashionTypeVariants(canonical string) []string {
	out := []string{canonical}
	for k, v := range fashionTypeSynonyms {
		if v == canonical {
			out = append(out, k)
		}
	}
	return out
}

type fashionProfile struct {
	baseProfile
}

func newFashionProfile() *fashionProfile {
	return &fashionProfile{baseProfile{
		name: FashionName,
		signals: []signal{
			{"brand", fashionBrandPattern, 2},
			{"type", fashionTypePattern, 2},
			{"model", fashionModelPattern, 2},
			{"size", fashionSizePattern, 1},
			{"category", regexp.MustCompile(`\b(fashion|clothing|clothes|apparel|outfit|streetwear)\b`), 1.5},
		},
		badCondition: fashionBadCondition,
		accessory:    fashionAccessory,
		fallbacks:    newFallbackSet(FallbackRelaxModelSuffix),
	}}
}

func (p *fashionProfile) EntityExtract(text string) Entities {
	lower := strings.ToLower(text)
	e := Entities{}
	if brand := firstMatch(fashionBrandPattern, lower); brand != "" {
		e["brand"] = spacesPattern.ReplaceAllString(strings.ReplaceAll(brand, "'", ""), " ")
	}
	if t := firstMatch(fashionTypePattern, lower); t != "" {
		t = spacesPattern.ReplaceAllString(t, " ")
		if canonical, ok := fashionTypeSynonyms[t]; ok {
			t = canonical
		}
		e["type"] = t
	}
	if model := firstMatch(fashionModelPattern, lower); model != "" {
		e["model"] = spacesPattern.ReplaceAllString(model, " ")
	}
	if size := firstMatch(fashionSizePattern, lower); size != "" {
		e["size"] = size
	}
	if color := firstMatch(fashionColorPattern, lower); color != "" {
		e["color"] = color
	}
	if gender := firstMatch(fashionGenderPattern, lower); gender != "" {
		e["gender"] = strings.TrimSuffix(strings.ReplaceAll(gender, "'", ""), "s")
	}
	return e
}

func (p *fashionProfile) PreprocessQueries(text string, _ models.Prefs) []string {
	e := p.EntityExtract(text)
	full := strings.Join(nonEmpty(e["gender"], e["brand"], e["model"], e["type"], e["color"]), " ")
	core := strings.Join(nonEmpty(e["brand"], e["model"], e["type"]), " ")
	return uniqueQueries(cleanQuery(text), full, core)
}

// FilterModel: strict requires garment type, brand, model line and color when
// named; relaxed accepts any one of brand, model or type.
func (p *fashionProfile) FilterModel(l models.RawListing, e Entities, strict bool) bool {
	text := l.Text()
	if e["brand"] == "" && e["type"] == "" && e["model"] == "" {
		return keywordMatch(text, keywords(strings.Join(entityValues(e), " ")), strict)
	}
	typeOK := e["type"] == "" || anyPhrase(text, fashionTypeVariants(e["type"]))
	brandOK := e["brand"] == "" || containsPhrase(text, e["brand"])
	modelOK := e["model"] == "" || containsPhrase(text, e["model"])
	if strict {
		colorOK := e["color"] == "" || containsPhrase(text, e["color"])
		return typeOK && brandOK && modelOK && colorOK
	}
	return (e["brand"] != "" && brandOK) || (e["model"] != "" && modelOK) || (e["type"] != "" && typeOK)
}

func anyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(text, p) {
			return true
		}
	}
	return false
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
