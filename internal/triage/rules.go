package triage

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"medical-triage/internal/domain"
)

// LanguageRules holds the urgency signals for one language.
type LanguageRules struct {
	// EmergencyKeywords are matched as lower-case substrings.
	EmergencyKeywords []string
	// UrgentPattern is matched against the lower-cased text.
	UrgentPattern string
}

// RuleTable maps a language to its urgency signals.
type RuleTable map[domain.Language]LanguageRules

// DefaultRules returns the built-in rule table. Callers get a fresh copy they
// may modify.
func DefaultRules() RuleTable {
	return RuleTable{
		domain.LanguageFrench: {
			EmergencyKeywords: []string{"urgence", "urgent", "immédiat", "hôpital", "critique", "grave"},
			UrgentPattern:     `urgent|24 heures|plus tôt possible`,
		},
		domain.LanguageEnglish: {
			EmergencyKeywords: []string{"emergency", "urgent", "immediate", "hospital", "critical"},
			UrgentPattern:     `urgent|24 hours|soon as possible`,
		},
	}
}

// Validate checks that every entry is usable and that the default language
// is present.
func (t RuleTable) Validate() error {
	if len(t) == 0 {
		return errors.New("triage: rule table is empty")
	}
	if _, ok := t[domain.DefaultLanguage]; !ok {
		return fmt.Errorf("triage: rule table has no entry for default language %q", domain.DefaultLanguage)
	}
	for lang, rules := range t {
		if strings.TrimSpace(string(lang)) == "" {
			return errors.New("triage: rule table has an empty language tag")
		}
		if len(normalizeKeywords(rules.EmergencyKeywords)) == 0 {
			return fmt.Errorf("triage: rules for %q have no emergency keywords", lang)
		}
		if strings.TrimSpace(rules.UrgentPattern) == "" {
			return fmt.Errorf("triage: rules for %q have no urgent pattern", lang)
		}
		if _, err := regexp.Compile(rules.UrgentPattern); err != nil {
			return fmt.Errorf("triage: rules for %q: compile urgent pattern: %w", lang, err)
		}
	}
	return nil
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
