// internal/domain/generic.go
package domain

import (
	"regexp"
	"strings"

	"shopping-agent/internal/models"
)

var genericBadCondition = regexp.MustCompile(`\b(for\s+parts|faulty|broken|not\s+working|damaged)\b`)

// genericProfile is the fallback when no category scores; it matches on keywords only.
type genericProfile struct {
	baseProfile
}

func newGenericProfile() *genericProfile {
	return &genericProfile{baseProfile{
		name:         GenericName,
		badCondition: genericBadCondition,
		fallbacks:    newFallbackSet(FallbackRelaxModelSuffix),
	}}
}

func (p *genericProfile) PreprocessQueries(text string, _ models.Prefs) []string {
	return uniqueQueries(cleanQuery(text), strings.Join(keywords(text), " "))
}

func (p *genericProfile) EntityExtract(text string) Entities {
	if kw := keywords(text); len(kw) > 0 {
		return Entities{"keywords": strings.Join(kw, " ")}
	}
	return Entities{}
}

func (p *genericProfile) FilterModel(l models.RawListing, e Entities, strict bool) bool {
	return keywordMatch(l.Text(), strings.Fields(e["keywords"]), strict)
}
