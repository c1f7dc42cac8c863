package models

// Conversation roles. The HTTP wire format historically used "ai" for the
// assistant role; NormalizeRole folds both spellings onto RoleAssistant.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one exchange in a conversation.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationContext is an ordered, chronological sequence of turns.
// It is append-only during a clarification loop.
type ConversationContext []ConversationTurn

// NormalizeRole maps wire-format role names onto the canonical role set.
func NormalizeRole(role string) string {
	switch role {
	case RoleAssistant, "ai":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// Append returns a new context with the turn added. The receiver is not
// modified, which keeps session state transitions pure.
func (c ConversationContext) Append(role, content string) ConversationContext {
	out := make(ConversationContext, len(c), len(c)+1)
	copy(out, c)
	return append(out, ConversationTurn{Role: role, Content: content})
}
