package models

import "time"

// CardContext is the visible text of the flashcard a chat is bound to.
// It is supplied by the host on every call and never persisted as a turn.
type CardContext struct {
	CardID string `json:"card_id"`
	Front  string `json:"front"`
	Back   string `json:"back"`
}

// ConversationView is what a freshly opened chat window renders: the stored
// turns plus the stripped card text as read-only grounding context.
type ConversationView struct {
	CardID  string `json:"card_id"`
	Context string `json:"context"`
	Turns   []Turn `json:"turns"`
}

// ConversationInfo summarizes one stored conversation for listings.
type ConversationInfo struct {
	CardID    string    `json:"card_id"`
	TurnCount int       `json:"turn_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationFilter narrows conversation listings.
type ConversationFilter struct {
	Since  *time.Time
	Limit  int
	Offset int
}

// GeneratedCard is one flashcard proposed from a conversation.
type GeneratedCard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
