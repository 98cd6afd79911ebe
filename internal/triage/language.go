package triage

import (
	"strings"

	"medical-triage/internal/domain"
)

// frenchLetters are accented letters that only show up in French output
// among the supported languages.
const frenchLetters = "àâèéêëîïôûùüÿçÀÂÈÉÊËÎÏÔÛÙÜŸÇ"

// DetectLanguage returns the language signalled by the characters of text.
// Text without any French accented letter, including empty text, is treated
// as English.
func DetectLanguage(text string) domain.Language {
	if strings.ContainsAny(text, frenchLetters) {
		return domain.LanguageFrench
	}
	return domain.DefaultLanguage
}
