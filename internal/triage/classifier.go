package triage

import (
	"fmt"
	"regexp"
	"strings"

	"medical-triage/internal/domain"
)

type compiledRules struct {
	keywords []string
	urgent   *regexp.Regexp
}

// Classifier derives an urgency verdict from generated guidance text.
// A Classifier is immutable and safe for concurrent use.
type Classifier struct {
	rules map[domain.Language]compiledRules
}

// NewClassifier compiles table into a Classifier.
func NewClassifier(table RuleTable) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{rules: make(map[domain.Language]compiledRules, len(table))}
	for lang, r := range table {
		re, err := regexp.Compile(r.UrgentPattern)
		if err != nil {
			return nil, fmt.Errorf("triage: compile urgent pattern for %q: %w", lang, err)
		}
		c.rules[lang] = compiledRules{
			keywords: normalizeKeywords(r.EmergencyKeywords),
			urgent:   re,
		}
	}
	return c, nil
}

// DefaultClassifier returns a Classifier over DefaultRules.
func DefaultClassifier() *Classifier {
	c, err := NewClassifier(DefaultRules())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns EMERGENCY when any emergency keyword for lang appears in
// text, URGENT when only the urgent pattern matches, and ROUTINE otherwise.
// Unknown languages are classified with the default language's rules.
func (c *Classifier) Classify(text string, lang domain.Language) domain.Verdict {
	r, ok := c.rules[lang]
	if !ok {
		r = c.rules[domain.DefaultLanguage]
	}
	lower := strings.ToLower(text)

	switch {
	case r.hasEmergency(lower):
		return domain.VerdictEmergency
	case r.urgent.MatchString(lower):
		return domain.VerdictUrgent
	default:
		return domain.VerdictRoutine
	}
}

func (r compiledRules) hasEmergency(lower string) bool {
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
