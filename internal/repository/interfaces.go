package repository

import (
	"context"

	"github.com/haleth/cardchat/internal/models"
)

// ConversationRepository handles durable conversation data access. Callers
// outside the store package should go through store.Store, which owns
// validation, timestamp monotonicity and per-card serialization.
type ConversationRepository interface {
	// Load returns the ordered turns for a card. A card with no stored
	// conversation yields an empty conversation, not an error.
	Load(ctx context.Context, cardID string) (models.Conversation, error)
	// AppendTurn durably appends one turn and returns it with its assigned
	// id and sequence number.
	AppendTurn(ctx context.Context, cardID string, turn models.Turn) (models.Turn, error)
	// Clear removes a card's conversation. Clearing an unknown card is a no-op.
	Clear(ctx context.Context, cardID string) error
	// Exists reports whether the card has at least one stored turn.
	Exists(ctx context.Context, cardID string) (bool, error)
	// List returns summaries of non-empty conversations, newest first.
	List(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationInfo, error)
	// DeleteNotIn removes every conversation whose card id is not in liveIDs
	// and returns the number of conversations removed.
	DeleteNotIn(ctx context.Context, liveIDs []string) (int64, error)
}
