package models

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the two stored roles.
// The system/context message is never persisted, so it is not a Role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is a single message in a per-card conversation. Turns are immutable
// once appended; timestamps are non-decreasing within a conversation.
type Turn struct {
	ID        int64     `json:"id"`
	CardID    string    `json:"card_id"`
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered turn history for one flashcard.
type Conversation struct {
	CardID string `json:"card_id"`
	Turns  []Turn `json:"turns"`
}

// Empty reports whether the conversation has no turns.
func (c Conversation) Empty() bool {
	return len(c.Turns) == 0
}

// LastTimestamp returns the timestamp of the most recent turn, or the zero
// time for an empty conversation.
func (c Conversation) LastTimestamp() time.Time {
	if len(c.Turns) == 0 {
		return time.Time{}
	}
	return c.Turns[len(c.Turns)-1].Timestamp
}
