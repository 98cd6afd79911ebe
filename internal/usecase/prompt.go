package usecase

import (
	"strings"

	"medical-triage/internal/domain"
)

func roleLabel(r domain.Role) string {
	if r == domain.RoleUser {
		return "Patient"
	}
	return "Medical Guide"
}

// composePrompt renders the whole conversation, oldest turn first, followed
// by the new patient message and the fixed instruction block.
func composePrompt(userText string, history []domain.ConversationTurn) string {
	return strings.Join([]string{
		personaPreamble(),
		"",
		"Complete Conversation History:",
		formatHistory(history),
		"",
		"Current patient message: " + userText,
		"",
		"Instructions:",
		instructions(),
		"",
		"Remember:",
		reminders(),
		"",
		"Respond appropriately based on the complete conversation history.",
	}, "\n")
}

func formatHistory(history []domain.ConversationTurn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, roleLabel(turn.Role)+": "+turn.Content)
	}
	return strings.Join(lines, "\n\n")
}

func personaPreamble() string {
	return "You are a Medical Guide assisting patients in remote areas. " +
		"Maintain conversation context and adapt your language to match the patient's language (French or English)."
}

func instructions() string {
	return strings.Join([]string{
		"1. Use the same language as the patient (French or English)",
		"2. If information is missing, ask specific follow-up questions about:",
		"   - Duration and severity of symptoms",
		"   - Age and general health",
		"   - Existing conditions",
		"   - Current medications",
		"   - Previous similar episodes",
		"3. If you have sufficient information, provide:",
		"   - Preliminary assessment",
		"   - Potential causes",
		"   - Care recommendations",
		"   - Clear urgency guidance",
	}, "\n")
}

func reminders() string {
	return strings.Join([]string{
		"- Reference previous information",
		"- Don't repeat questions already answered",
		"- Provide clear, simple instructions",
		"- Consider limited medical access",
		"- Keep conversation natural and empathetic",
	}, "\n")
}
