package models

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single entry of the visible chat transcript.
// ElementID is only set for assistant placeholders so the pending
// exchange can find its slot again.
type Message struct {
	Role      Role
	Text      string
	ElementID string
}

// IsPlaceholder reports whether the message was created as an assistant
// placeholder for an exchange.
func (m Message) IsPlaceholder() bool {
	return m.Role == RoleAssistant && m.ElementID != ""
}
