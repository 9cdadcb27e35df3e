package internal

import (
	"regexp"
	"strings"
)

// SiteRule overrides the global privacy settings for addresses matching Pattern.
// A nil override inherits the global value.
type SiteRule struct {
	ID                        string `json:"id"`
	Pattern                   string `json:"pattern"`
	JavaScriptOverride        *bool  `json:"javaScriptOverride,omitempty"`
	ThirdPartyCookiesOverride *bool  `json:"thirdPartyCookiesOverride,omitempty"`
}

// Matches reports whether address matches the rule's pattern. '*' matches
// any run of characters and the pattern must cover the whole address.
// A pattern that cannot be compiled matches nothing.
func (r SiteRule) Matches(address string) bool {
	re, err := compileRulePattern(r.Pattern)
	if err != nil {
		return false
	}
	return re.MatchString(address)
}

func compileRulePattern(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile(`(?s)^(?:` + strings.Join(parts, `.*`) + `)$`)
}

// BoolPtr returns a pointer to b, for building rule overrides
func BoolPtr(b bool) *bool {
	return &b
}
