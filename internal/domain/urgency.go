package domain

// Language is the tag of a supported response language.
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"

	// DefaultLanguage is used whenever no other language can be established.
	DefaultLanguage = LanguageEnglish
)

// Verdict is the urgency level derived from generated guidance.
// Higher values are more severe.
type Verdict int

const (
	VerdictRoutine Verdict = iota + 1
	VerdictUrgent
	VerdictEmergency
)

func (v Verdict) String() string {
	switch v {
	case VerdictRoutine:
		return "ROUTINE"
	case VerdictUrgent:
		return "URGENT"
	case VerdictEmergency:
		return "EMERGENCY"
	default:
		return "UNKNOWN"
	}
}

// MoreSevereThan reports whether v outranks other.
func (v Verdict) MoreSevereThan(other Verdict) bool {
	return v > other
}
