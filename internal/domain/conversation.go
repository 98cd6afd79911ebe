package domain

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ConversationTurn is a single message in a conversation. Turns are never
// modified once appended; the caller owns the history and resubmits it on
// every request.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AppendExchange returns a new history made of history followed by the
// user message and the assistant reply. history itself is left untouched.
func AppendExchange(history []ConversationTurn, userText, reply string) []ConversationTurn {
	out := make([]ConversationTurn, 0, len(history)+2)
	out = append(out, history...)
	return append(out,
		ConversationTurn{Role: RoleUser, Content: userText},
		ConversationTurn{Role: RoleAssistant, Content: reply},
	)
}
