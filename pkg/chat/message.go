package chat

// Role tags who authored a message within a session.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single conversation turn. Messages are immutable once written
// to the store.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is an in-memory handle onto one persisted conversation thread.
// Every non-empty session starts with exactly one system message; the
// Manager maintains that invariant when opening sessions.
type Session struct {
	ID       string
	Messages []Message
}

// Turns returns the user/assistant exchange without the leading system
// message. Front ends hydrate their message list from this.
func (s *Session) Turns() []Message {
	if len(s.Messages) == 0 {
		return nil
	}
	out := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
