// internal/domain/laptop.go
package domain

import (
	"regexp"
	"strings"

	"shopping-agent/internal/models"
)

const LaptopName = "electronics_laptop"

var (
	laptopLinePattern    = regexp.MustCompile(`\b(macbook\s+air|macbook\s+pro|macbook|thinkpad|ideapad|yoga|legion|xps|inspiron|latitude|alienware|zenbook|vivobook|rog|tuf|spectre|envy|pavilion|elitebook|omen|surface\s+laptop|surface\s+pro|chromebook|swift|aspire|predator|nitro|galaxy\s+book|razer\s+blade|gram)\b`)
	laptopChipPattern    = regexp.MustCompile(`\b(m[1-4](?:\s*(?:pro|max))?|i[3579](?:-\d{4,5}[a-z]*)?|ryzen\s*[3579]|core\s*ultra\s*[579]|snapdragon\s*x\s*(?:elite|plus)?)\b`)
	laptopRAMPattern     = regexp.MustCompile(`\b(\d{1,3})\s*gb\s*(?:of\s+)?(?:ram|memory|unified\s+memory|ddr\d?|lpddr\d?x?)\b`)
	laptopStoragePattern = regexp.MustCompile(`\b(\d{3,4}\s*gb|\d\s*tb)\b`)
	laptopScreenPattern  = regexp.MustCompile(`\b(1[1-8](?:\.\d)?)\s*(?:"|''|-?\s*inch(?:es)?|in\b)`)
	laptopBrandPattern   = regexp.MustCompile(`\b(apple|dell|hp|lenovo|asus|acer|msi|microsoft|samsung|razer|lg|huawei|gigabyte)\b`)
	laptopAccessory      = regexp.MustCompile(`\b(sleeve|bag|backpack|case|shell|cover|skin|decal|charger|adapter|adaptor|power\s*supply|dock|docking\s*station|hub|stand|keyboard\s*(cover|protector)|screen\s*protector|privacy\s*filter|mouse|cooling\s*pad|replacement\s*(battery|screen|keyboard))\b`)
	laptopBadCondition   = regexp.MustCompile(`\b(refurbished|renewed|pre-?owned|used|for\s+parts|faulty|broken|damaged|cracked)\b`)
)

var laptopLineBrands = map[string]string{
	"macbook": "apple", "macbook air": "apple", "macbook pro": "apple",
	"thinkpad": "lenovo", "ideapad": "lenovo", "yoga": "lenovo", "legion": "lenovo",
	"xps": "dell", "inspiron": "dell", "latitude": "dell", "alienware": "dell",
	"zenbook": "asus", "vivobook": "asus", "rog": "asus", "tuf": "asus",
	"spectre": "hp", "envy": "hp", "pavilion": "hp", "elitebook": "hp", "omen": "hp",
	"surface laptop": "microsoft", "surface pro": "microsoft",
	"swift": "acer", "aspire": "acer", "predator": "acer", "nitro": "acer",
	"galaxy book": "samsung", "razer blade": "razer", "gram": "lg",
}

type laptopProfile struct {
	baseProfile
}

func newLaptopProfile() *laptopProfile {
	return &laptopProfile{baseProfile{
		name: LaptopName,
		signals: []signal{
			{"laptop", regexp.MustCompile(`\b(laptops?|notebooks?|ultrabooks?)\b`), 3},
			{"line", laptopLinePattern, 2.5},
			{"chip", laptopChipPattern, 1},
			{"ram", laptopRAMPattern, 1},
			{"screen", laptopScreenPattern, 0.5},
		},
		badCondition: laptopBadCondition,
		accessory:    laptopAccessory,
		fallbacks:    newFallbackSet(FallbackRelaxModelSuffix),
	}}
}

func (p *laptopProfile) EntityExtract(text string) Entities {
	lower := strings.ToLower(text)
	e := Entities{}
	if line := firstMatch(laptopLinePattern, lower); line != "" {
		e["line"] = spacesPattern.ReplaceAllString(line, " ")
		e["brand"] = laptopLineBrands[e["line"]]
	}
	if brand := firstMatch(laptopBrandPattern, lower); brand != "" {
		e["brand"] = brand
	}
	if chip := firstMatch(laptopChipPattern, lower); chip != "" {
		e["chip"] = spacesPattern.ReplaceAllString(chip, " ")
	}
	if ram := firstMatch(laptopRAMPattern, lower); ram != "" {
		e["ram"] = ram + "gb"
	}
	if storage := laptopStorage(lower); storage != "" {
		e["storage"] = storage
	}
	if screen := firstMatch(laptopScreenPattern, lower); screen != "" {
		e["screen"] = screen
	}
	for k, v := range e {
		if v == "" {
			delete(e, k)
		}
	}
	return e
}

// laptopStorage returns the first capacity that is not a RAM figure.
func laptopStorage(lower string) string {
	for _, loc := range laptopStoragePattern.FindAllStringIndex(lower, -1) {
		if ram := laptopRAMPattern.FindStringIndex(lower[loc[0]:]); ram != nil && ram[0] == 0 {
			continue
		}
		return strings.ReplaceAll(lower[loc[0]:loc[1]], " ", "")
	}
	return ""
}

func (p *laptopProfile) PreprocessQueries(text string, _ models.Prefs) []string {
	e := p.EntityExtract(text)
	var canonical, lineOnly string
	if e["line"] != "" {
		canonical = strings.TrimSpace(strings.Join([]string{e["brand"], e["line"], e["chip"], e["screen"]}, " "))
		lineOnly = strings.TrimSpace(e["brand"] + " " + e["line"] + " laptop")
	}
	return uniqueQueries(cleanQuery(text), canonical, lineOnly)
}

// FilterModel requires the product line; strict mode also requires chip and
// screen agreement and matching capacities when the title states them.
func (p *laptopProfile) FilterModel(l models.RawListing, e Entities, strict bool) bool {
	text := l.Text()
	if e["line"] == "" && e["brand"] == "" {
		return keywordMatch(text, keywords(strings.Join(entityValues(e), " ")), strict)
	}
	if e["line"] != "" && !containsPhrase(text, e["line"]) {
		if strict || !(e["brand"] != "" && containsPhrase(text, e["brand"])) {
			return false
		}
	}
	if e["line"] == "" && !containsPhrase(text, e["brand"]) {
		return false
	}
	if !strict {
		return true
	}
	listing := p.EntityExtract(l.Title())
	if e["chip"] != "" && listing["chip"] != e["chip"] {
		return false
	}
	if e["screen"] != "" && listing["screen"] != "" && listing["screen"] != e["screen"] {
		return false
	}
	for _, k := range []string{"ram", "storage"} {
		if e[k] != "" && listing[k] != "" && listing[k] != e[k] {
			return false
		}
	}
	return true
}
