package triage

import "medical-triage/internal/domain"

var advisories = map[domain.Language]map[domain.Verdict]string{
	domain.LanguageFrench: {
		domain.VerdictEmergency: "URGENCE : Cette situation nécessite une attention médicale immédiate.",
		domain.VerdictUrgent:    "URGENT : Consultez un professionnel de santé dans les 24 heures.",
		domain.VerdictRoutine:   "Consultez un professionnel de santé dès que possible.",
	},
	domain.LanguageEnglish: {
		domain.VerdictEmergency: "EMERGENCY: This situation requires immediate medical attention.",
		domain.VerdictUrgent:    "URGENT: Please seek medical care within the next 24 hours.",
		domain.VerdictRoutine:   "Please seek medical care when possible.",
	},
}

// Advisory returns the localized advisory sentence for verdict.
//
// A language without a table falls back to the default language and an
// unrecognised verdict is reported with the emergency wording, so a lookup
// never blocks delivery of the guidance it accompanies.
func Advisory(lang domain.Language, verdict domain.Verdict) string {
	table, ok := advisories[lang]
	if !ok {
		table = advisories[domain.DefaultLanguage]
	}
	if msg, ok := table[verdict]; ok {
		return msg
	}
	return table[domain.VerdictEmergency]
}
