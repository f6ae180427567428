// internal/domain/phone.go
package domain

import (
	"fmt"
	"regexp"
	"strings"

	"shopping-agent/internal/models"
)

const PhoneName = "electronics_phone"

var (
	iphoneModelPattern    = regexp.MustCompile(`\biphone\s*(\d{1,2}|se|x[rs]?)\b`)
	galaxyModelPattern    = regexp.MustCompile(`\bgalaxy\s*([sazm])\s*-?\s*(\d{1,3})\b`)
	pixelModelPattern     = regexp.MustCompile(`\bpixel\s*(\d{1,2})(a)?\b`)
	phoneVariantPrefix    = regexp.MustCompile(`^\s*(pro\s*max|pro\s*xl|pro|plus|ultra|mini|fe|max|edge)\b`)
	phoneStoragePattern   = regexp.MustCompile(`\b(\d{2,4})\s*(gb|tb)\b`)
	phoneAccessoryPattern = regexp.MustCompile(`\b(case|cases|cover|covers|folio|screen\s*protectors?|protectors?|tempered\s*glass|charger|chargers|charging\s*(pad|stand|cable)|cables?|adapters?|adaptors?|wallet|strap|lanyard|holder|mount|skin|skins|sticker|lens\s*protector|earbuds|headphones|power\s*bank|stylus|film|compatible\s+with|replacement\s+(battery|screen)|dummy|display\s*model)\b`)
	phoneBadCondition     = regexp.MustCompile(`\b(refurbished|renewed|pre-?owned|used|second[-\s]hand|for\s+parts|faulty|cracked|broken|locked\s+to|blacklisted)\b`)
)

var phoneBrands = map[string]string{
	"iphone": "apple",
	"galaxy": "samsung",
	"pixel":  "google",
}

// phoneModel is the facet signature parsed from a phone title or query.
type phoneModel struct {
	family  string
	series  string
	gen     string
	variant string
	storage string
}

func parsePhoneModel(text string) phoneModel {
	lower := strings.ToLower(strings.ReplaceAll(text, "+", " plus "))
	var (
		m   phoneModel
		end int
	)
	switch {
	case iphoneModelPattern.MatchString(lower):
		loc := iphoneModelPattern.FindStringSubmatchIndex(lower)
		m.family, m.gen, end = "iphone", lower[loc[2]:loc[3]], loc[1]
	case galaxyModelPattern.MatchString(lower):
		loc := galaxyModelPattern.FindStringSubmatchIndex(lower)
		m.family, m.series, m.gen, end = "galaxy", lower[loc[2]:loc[3]], lower[loc[4]:loc[5]], loc[1]
	case pixelModelPattern.MatchString(lower):
		loc := pixelModelPattern.FindStringSubmatchIndex(lower)
		m.family, m.gen, end = "pixel", lower[loc[2]:loc[3]], loc[1]
		if loc[4] >= 0 {
			m.variant = "a"
		}
	}
	if m.family != "" && m.variant == "" {
		if v := phoneVariantPrefix.FindStringSubmatch(lower[end:]); v != nil {
			m.variant = spacesPattern.ReplaceAllString(v[1], " ")
		}
	}
	if s := phoneStoragePattern.FindStringSubmatch(lower); s != nil {
		m.storage = s[1] + s[2]
	}
	return m
}

func (m phoneModel) entities() Entities {
	e := Entities{}
	set := func(k, v string) {
		if v != "" {
			e[k] = v
		}
	}
	set("family", m.family)
	set("brand", phoneBrands[m.family])
	set("series", m.series)
	set("gen", m.gen)
	set("variant", m.variant)
	set("storage", m.storage)
	return e
}

// display renders the canonical provider query, e.g. "Apple iPhone 15 Pro 256GB".
func (m phoneModel) display(withStorage bool) string {
	if m.family == "" {
		return ""
	}
	var parts []string
	switch m.family {
	case "iphone":
		parts = append(parts, "Apple iPhone", strings.ToUpper(m.gen))
	case "galaxy":
		parts = append(parts, "Samsung Galaxy", strings.ToUpper(m.series)+m.gen)
	case "pixel":
		parts = append(parts, "Google Pixel", m.gen)
	}
	if m.variant != "" {
		parts = append(parts, titleCase(m.variant))
	}
	if withStorage && m.storage != "" {
		parts = append(parts, strings.ToUpper(m.storage))
	}
	return strings.Join(parts, " ")
}

type phoneProfile struct {
	baseProfile
}

func newPhoneProfile() *phoneProfile {
	return &phoneProfile{baseProfile{
		name: PhoneName,
		signals: []signal{
			{"iphone", regexp.MustCompile(`\biphone\b`), 3},
			{"galaxy", galaxyModelPattern, 3},
			{"pixel", pixelModelPattern, 3},
			{"phone", regexp.MustCompile(`\b(smart\s*)?phones?\b|\bmobile\b`), 2},
			{"network", regexp.MustCompile(`\b(unlocked|5g|dual\s*sim|esim)\b`), 1},
			{"storage", phoneStoragePattern, 0.5},
		},
		badCondition: phoneBadCondition,
		accessory:    phoneAccessoryPattern,
		fallbacks:    newFallbackSet(FallbackRelaxModelSuffix, FallbackSoftscoreRelaxSuffix),
	}}
}

func (p *phoneProfile) PreprocessQueries(text string, _ models.Prefs) []string {
	m := parsePhoneModel(text)
	broad := phoneModel{family: m.family, series: m.series, gen: m.gen}
	return uniqueQueries(
		cleanQuery(text),
		m.display(true),
		m.display(false),
		broad.display(false),
	)
}

func (p *phoneProfile) EntityExtract(text string) Entities {
	return parsePhoneModel(text).entities()
}

// FilterModel requires family and generation agreement. Strict mode also
// requires the same variant and storage; relaxed mode accepts variant
// suffixes ("pro" matches "pro max") and titles that omit storage.
func (p *phoneProfile) FilterModel(l models.RawListing, e Entities, strict bool) bool {
	if e["family"] == "" {
		return keywordMatch(l.Text(), keywords(strings.Join(entityValues(e), " ")), strict)
	}
	m := parsePhoneModel(l.Title())
	if m.family != e["family"] {
		return false
	}
	if e["gen"] != "" && m.gen != e["gen"] {
		return false
	}
	if e["series"] != "" && m.series != e["series"] {
		return false
	}
	if strict {
		if m.variant != e["variant"] {
			return false
		}
		if e["storage"] != "" && m.storage != e["storage"] {
			return false
		}
		return true
	}
	if e["variant"] != "" && !strings.HasPrefix(m.variant, e["variant"]) {
		return false
	}
	if e["storage"] != "" && m.storage != "" && m.storage != e["storage"] {
		return false
	}
	return true
}

func (p *phoneProfile) DedupKey(title string, l models.RawListing, _ Entities) string {
	m := parsePhoneModel(title)
	if m.family == "" {
		return p.idOrSignature(l, normalizeTitle(title))
	}
	sig := strings.Join([]string{m.family, m.series + m.gen, m.variant, m.storage}, "-")
	return p.idOrSignature(l, fmt.Sprintf("%s|%s", sig, strings.ToLower(l.Provider())))
}

// SoftScore ranks near-miss listings for the backfill fallback.
func (p *phoneProfile) SoftScore(l models.RawListing, e Entities, priceOK bool) float64 {
	m := parsePhoneModel(l.Title() + " " + l.Subtitle())
	score := 0.0
	if m.family != "" && m.family == e["family"] {
		score += 3
	}
	if m.gen != "" && m.gen == e["gen"] {
		score += 3
	}
	switch {
	case e["variant"] != "" && m.variant == e["variant"]:
		score += 2
	case e["variant"] != "" && strings.HasPrefix(m.variant, e["variant"]):
		score++
	case e["variant"] == "" && m.variant == "":
		score++
	}
	if e["storage"] != "" && m.storage == e["storage"] {
		score++
	}
	if priceOK {
		score += 1.5
	}
	if phoneAccessoryPattern.MatchString(strings.ToLower(l.Title())) {
		score -= 4
	}
	if phoneBadCondition.MatchString(strings.ToLower(l.Title())) {
		score--
	}
	return score
}

func entityValues(e Entities) []string {
	out := make([]string, 0, len(e))
	for _, k := range []string{"brand", "family", "line", "model", "type", "title", "keywords", "gen", "variant"} {
		if v := e[k]; v != "" {
			out = append(out, v)
		}
	}
	return out
}
