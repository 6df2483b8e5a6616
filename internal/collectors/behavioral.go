package collectors

import "strings"

// PatternMatch is one behavioral pattern hit in a piece of text.
type PatternMatch struct {
	Pattern  string
	Category string
	Points   int
}

type pattern struct {
	phrase   string
	category string
	points   int
}

// BehavioralMatcher scans free text (profile bios) for phrases associated
// with known fraud playbooks. Matching is case-insensitive substring match.
type BehavioralMatcher struct {
	patterns []pattern
}

// NewBehavioralMatcher returns a matcher with the built-in phrase table.
func NewBehavioralMatcher() *BehavioralMatcher {
	return &BehavioralMatcher{patterns: []pattern{
		{"guaranteed returns", "investment-scam", 12},
		{"crypto giveaway", "investment-scam", 12},
		{"double your money", "investment-scam", 12},
		{"dm for profit", "investment-scam", 8},
		{"cashapp blessing", "advance-fee", 10},
		{"sugar daddy", "advance-fee", 8},
		{"wire transfer only", "advance-fee", 8},
		{"act now", "urgency", 5},
		{"limited time offer", "urgency", 5},
		{"verify your account", "phishing", 10},
		{"claim your prize", "phishing", 10},
	}}
}

// Match returns every pattern found in text, in table order. Returns nil
// for empty text.
func (m *BehavioralMatcher) Match(text string) []PatternMatch {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var out []PatternMatch
	for _, p := range m.patterns {
		if strings.Contains(lower, p.phrase) {
			out = append(out, PatternMatch{Pattern: p.phrase, Category: p.category, Points: p.points})
		}
	}
	return out
}
