// internal/models/query.go
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Intent is the resolved purpose of an agent query.
type Intent string

const (
	IntentPrice     Intent = "price"
	IntentRecommend Intent = "recommend"
)

// Labels reported in the intent_select trace step.
const (
	LabelPriceCompare     = "price_compare"
	LabelGeneralRecommend = "general_recommend"
)

// Skills reported on the agent response.
const (
	SkillPriceCompare   = "price_compare"
	SkillRecommendation = "recommendation"
)

// ParseExplicitIntent maps a caller-supplied intent onto an Intent. Anything that
// is not a price spelling is treated as a recommendation request.
func ParseExplicitIntent(raw string) Intent {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "price_compare", "price", "compare":
		return IntentPrice
	default:
		return IntentRecommend
	}
}

func (i Intent) Label() string {
	if i == IntentPrice {
		return LabelPriceCompare
	}
	return LabelGeneralRecommend
}

func (i Intent) Skill() string {
	if i == IntentPrice {
		return SkillPriceCompare
	}
	return SkillRecommendation
}

type HistoryTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Query is the immutable input of a single agent request.
type Query struct {
	Text    string        `json:"text"`
	Intent  string        `json:"intent,omitempty"`
	UserID  string        `json:"user_id,omitempty"`
	Prefs   Prefs         `json:"prefs,omitempty"`
	History []HistoryTurn `json:"history,omitempty"`
}

// Prefs are loosely typed caller preferences (domain, debug, is_accessory, region, ...).
type Prefs map[string]interface{}

func (p Prefs) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Bool accepts booleans, "true"/"1"/"yes" strings and non-zero numbers.
func (p Prefs) Bool(key string) bool {
	switch t := p[key].(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "on":
			return true
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func (p Prefs) Float(key string) (float64, bool) {
	return ParseAmount(p[key])
}

func (p Prefs) Int(key string) (int, bool) {
	switch t := p[key].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

// Clone returns a shallow copy so callers can adjust prefs without touching the request.
func (p Prefs) Clone() Prefs {
	out := make(Prefs, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
