// Package store implements the per-card conversation store: an append-only,
// write-through log of chat turns keyed by flashcard id. It is the only
// component allowed to mutate persisted chat history.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/repository"
)

// Store owns durable conversation state. Appends to the same card are
// serialized through a per-card mutex; operations on different cards proceed
// concurrently. Every mutation is written through before the call returns.
type Store struct {
	repo  repository.ConversationRepository
	locks *keyedMutex
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the append-time clock. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store backed by the given repository.
func New(repo repository.ConversationRepository, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the conversation for a card, or an empty conversation if none
// exists. A damaged underlying record degrades to an empty conversation
// rather than an error, so a broken history never blocks a fresh chat.
func (s *Store) Load(ctx context.Context, cardID string) (models.Conversation, error) {
	if err := validateCardID(cardID); err != nil {
		return models.Conversation{}, err
	}

	conv, err := s.repo.Load(ctx, cardID)
	if err != nil {
		logger.FromContext(ctx).Warn("conversation record for card %s unreadable, treating as empty: %v", cardID, err)
		return models.Conversation{CardID: cardID}, nil
	}
	return conv, nil
}

// Append validates and durably appends one turn, returning the full updated
// conversation. The turn's timestamp is assigned here: the current clock
// reading, clamped forward so it never precedes the previous turn.
func (s *Store) Append(ctx context.Context, cardID string, role models.Role, text string) (models.Conversation, error) {
	if err := validateCardID(cardID); err != nil {
		return models.Conversation{}, err
	}
	if !role.Valid() {
		return models.Conversation{}, errors.NewValidationError("role", "must be user or assistant")
	}
	if strings.TrimSpace(text) == "" {
		return models.Conversation{}, errors.NewValidationError("text", "must not be empty")
	}

	s.locks.Lock(cardID)
	defer s.locks.Unlock(cardID)

	conv, err := s.repo.Load(ctx, cardID)
	if err != nil {
		// Same degradation policy as Load: an unreadable history must not
		// block new appends.
		logger.FromContext(ctx).Warn("conversation record for card %s unreadable before append, treating as empty: %v", cardID, err)
		conv = models.Conversation{CardID: cardID}
	}

	ts := s.now()
	if last := conv.LastTimestamp(); ts.Before(last) {
		ts = last
	}

	stored, err := s.repo.AppendTurn(ctx, cardID, models.Turn{
		Role:      role,
		Text:      text,
		Timestamp: ts,
	})
	if err != nil {
		return models.Conversation{}, errors.NewPersistenceError("turn", err)
	}

	conv.Turns = append(conv.Turns, stored)
	return conv, nil
}

// Clear removes the entire conversation for a card. Clearing a card with no
// history is a no-op.
func (s *Store) Clear(ctx context.Context, cardID string) error {
	if err := validateCardID(cardID); err != nil {
		return err
	}

	s.locks.Lock(cardID)
	defer s.locks.Unlock(cardID)

	if err := s.repo.Clear(ctx, cardID); err != nil {
		return errors.NewPersistenceError("conversation clear", err)
	}
	return nil
}

// Exists reports whether the card's conversation is non-empty.
func (s *Store) Exists(ctx context.Context, cardID string) (bool, error) {
	if err := validateCardID(cardID); err != nil {
		return false, err
	}

	exists, err := s.repo.Exists(ctx, cardID)
	if err != nil {
		return false, errors.NewInternalError(err)
	}
	return exists, nil
}

// List returns summaries of all non-empty conversations, newest first.
func (s *Store) List(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationInfo, error) {
	infos, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return infos, nil
}

// Prune removes conversations whose card id is not in liveIDs. The host
// supplies the set of cards that still exist; an empty set is rejected so a
// buggy caller cannot wipe the store.
func (s *Store) Prune(ctx context.Context, liveIDs []string) (int64, error) {
	if len(liveIDs) == 0 {
		return 0, errors.NewValidationError("live_card_ids", "must not be empty")
	}

	n, err := s.repo.DeleteNotIn(ctx, liveIDs)
	if err != nil {
		return 0, errors.NewPersistenceError("conversation prune", err)
	}
	return n, nil
}

func validateCardID(cardID string) error {
	if strings.TrimSpace(cardID) == "" {
		return errors.NewValidationError("card_id", "must not be empty")
	}
	return nil
}
