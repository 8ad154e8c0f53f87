package store

import (
	"encoding/json"
)

// UserPreferences represents the stored preference row for a user.
type UserPreferences struct {
	UserID      int32
	Preferences string // JSON string
	CreatedTs   int64
	UpdatedTs   int64
}

// FindUserPreferences specifies the conditions for finding user preferences.
type FindUserPreferences struct {
	UserID *int32
}

// UpsertUserPreferences specifies the data for upserting user preferences.
type UpsertUserPreferences struct {
	UserID      int32
	Preferences string // JSON string
}

// Recommendation frequency tiers.
const (
	FrequencyLow    = "low"
	FrequencyMedium = "medium"
	FrequencyHigh   = "high"
)

// Preferences is the decoded preference bag. The fields the engine
// depends on are typed; everything else round-trips through Extra so
// clients can attach their own keys without schema changes.
type Preferences struct {
	RecommendationFrequency string
	DisableProactive        bool
	LastRecommendationTime  string // RFC 3339 UTC, empty when never sent
	Extra                   map[string]any
}

const (
	prefKeyFrequency        = "recommendation_frequency"
	prefKeyDisableProactive = "disable_proactive"
	prefKeyLastRecommended  = "last_recommendation_time"
)

// DecodePreferences parses the stored JSON bag. An empty string decodes
// to an empty bag.
func DecodePreferences(raw string) (*Preferences, error) {
	p := &Preferences{}
	if raw == "" {
		return p, nil
	}
	var bag map[string]any
	if err := json.Unmarshal([]byte(raw), &bag); err != nil {
		return nil, err
	}
	if v, ok := bag[prefKeyFrequency].(string); ok {
		p.RecommendationFrequency = v
		delete(bag, prefKeyFrequency)
	}
	if v, ok := bag[prefKeyDisableProactive].(bool); ok {
		p.DisableProactive = v
		delete(bag, prefKeyDisableProactive)
	}
	if v, ok := bag[prefKeyLastRecommended].(string); ok {
		p.LastRecommendationTime = v
		delete(bag, prefKeyLastRecommended)
	}
	if len(bag) > 0 {
		p.Extra = bag
	}
	return p, nil
}

// Encode serializes the bag back to the stored JSON form.
func (p *Preferences) Encode() (string, error) {
	bag := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		bag[k] = v
	}
	if p.RecommendationFrequency != "" {
		bag[prefKeyFrequency] = p.RecommendationFrequency
	}
	if p.DisableProactive {
		bag[prefKeyDisableProactive] = true
	}
	if p.LastRecommendationTime != "" {
		bag[prefKeyLastRecommended] = p.LastRecommendationTime
	}
	buf, err := json.Marshal(bag)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Frequency returns the effective recommendation frequency tier.
func (p *Preferences) Frequency() string {
	switch p.RecommendationFrequency {
	case FrequencyLow, FrequencyMedium, FrequencyHigh:
		return p.RecommendationFrequency
	default:
		return FrequencyMedium
	}
}

// Merge applies a patch on top of the bag. Typed keys are recognized in
// the patch; unknown keys land in Extra. Existing keys not present in
// the patch are preserved.
func (p *Preferences) Merge(patch map[string]any) {
	for k, v := range patch {
		switch k {
		case prefKeyFrequency:
			if s, ok := v.(string); ok {
				p.RecommendationFrequency = s
			}
		case prefKeyDisableProactive:
			if b, ok := v.(bool); ok {
				p.DisableProactive = b
			}
		case prefKeyLastRecommended:
			if s, ok := v.(string); ok {
				p.LastRecommendationTime = s
			}
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
		}
	}
}

// Items returns the bag as flat key/value pairs for prompt rendering,
// typed keys first, Extra keys sorted by the caller if order matters.
func (p *Preferences) Items() map[string]any {
	items := make(map[string]any, len(p.Extra)+3)
	if p.RecommendationFrequency != "" {
		items[prefKeyFrequency] = p.RecommendationFrequency
	}
	if p.DisableProactive {
		items[prefKeyDisableProactive] = true
	}
	if p.LastRecommendationTime != "" {
		items[prefKeyLastRecommended] = p.LastRecommendationTime
	}
	for k, v := range p.Extra {
		items[k] = v
	}
	return items
}
