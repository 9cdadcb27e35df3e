package internal

import (
	"errors"

	"github.com/google/uuid"
)

// ErrEmptyPattern is returned when a site rule is added without a pattern
var ErrEmptyPattern = errors.New("site rule pattern is empty")

// PrivacySettings are the global privacy defaults plus ordered site rules
type PrivacySettings struct {
	JavaScriptEnabled        bool       `json:"javaScriptEnabled"`
	ThirdPartyCookiesAllowed bool       `json:"thirdPartyCookiesAllowed"`
	HistoryRetentionDays     int        `json:"historyRetentionDays"`
	SiteRules                []SiteRule `json:"siteRules"`
}

// DefaultPrivacySettings returns the settings used when nothing is persisted
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		JavaScriptEnabled:        true,
		ThirdPartyCookiesAllowed: false,
		HistoryRetentionDays:     30,
		SiteRules:                []SiteRule{},
	}
}

// Globals returns the policy applied when no site rule matches
func (ps PrivacySettings) Globals() EffectivePolicy {
	return EffectivePolicy{
		JavaScriptEnabled:        ps.JavaScriptEnabled,
		ThirdPartyCookiesAllowed: ps.ThirdPartyCookiesAllowed,
	}
}

// AddRule returns a copy of the settings with a new rule appended
func (ps PrivacySettings) AddRule(pattern string, javaScript, thirdPartyCookies *bool) (PrivacySettings, SiteRule, error) {
	if pattern == "" {
		return ps, SiteRule{}, ErrEmptyPattern
	}
	rule := SiteRule{
		ID:                        uuid.NewString(),
		Pattern:                   pattern,
		JavaScriptOverride:        javaScript,
		ThirdPartyCookiesOverride: thirdPartyCookies,
	}
	rules := make([]SiteRule, 0, len(ps.SiteRules)+1)
	rules = append(rules, ps.SiteRules...)
	ps.SiteRules = append(rules, rule)
	return ps, rule, nil
}

// RemoveRule returns a copy of the settings without the rule with the given
// id, and whether such a rule existed
func (ps PrivacySettings) RemoveRule(id string) (PrivacySettings, bool) {
	rules := make([]SiteRule, 0, len(ps.SiteRules))
	found := false
	for _, r := range ps.SiteRules {
		if r.ID == id {
			found = true
			continue
		}
		rules = append(rules, r)
	}
	ps.SiteRules = rules
	return ps, found
}

// ResolveEffective returns the policy for address: the first matching rule's
// overrides, each unset field inherited from the globals.
func ResolveEffective(address string, settings PrivacySettings) EffectivePolicy {
	policy := settings.Globals()
	for _, rule := range settings.SiteRules {
		if !rule.Matches(address) {
			continue
		}
		if rule.JavaScriptOverride != nil {
			policy.JavaScriptEnabled = *rule.JavaScriptOverride
		}
		if rule.ThirdPartyCookiesOverride != nil {
			policy.ThirdPartyCookiesAllowed = *rule.ThirdPartyCookiesOverride
		}
		return policy
	}
	return policy
}

// MatchingRule returns the rule that decides the policy for address
func MatchingRule(address string, settings PrivacySettings) (SiteRule, bool) {
	for _, rule := range settings.SiteRules {
		if rule.Matches(address) {
			return rule, true
		}
	}
	return SiteRule{}, false
}

// PrivacyPolicyStore persists PrivacySettings
type PrivacyPolicyStore struct {
	kv KVStore
}

// NewPrivacyPolicyStore creates a store over kv
func NewPrivacyPolicyStore(kv KVStore) *PrivacyPolicyStore {
	return &PrivacyPolicyStore{kv: kv}
}

// Load returns the persisted settings, or the defaults when the record is
// missing or cannot be decoded
func (s *PrivacyPolicyStore) Load() PrivacySettings {
	settings := DefaultPrivacySettings()
	if !loadRecord(s.kv, KeyPrivacySettings, &settings) {
		return DefaultPrivacySettings()
	}
	if settings.SiteRules == nil {
		settings.SiteRules = []SiteRule{}
	}
	return settings
}

// Save replaces the persisted settings
func (s *PrivacyPolicyStore) Save(settings PrivacySettings) error {
	if settings.SiteRules == nil {
		settings.SiteRules = []SiteRule{}
	}
	return saveRecord(s.kv, KeyPrivacySettings, settings)
}

// ResolveEffective resolves address against the given settings
func (s *PrivacyPolicyStore) ResolveEffective(address string, settings PrivacySettings) EffectivePolicy {
	return ResolveEffective(address, settings)
}
