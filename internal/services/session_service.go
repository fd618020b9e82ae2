package services

import (
	"context"
	"strings"
	"sync"

	"github.com/haleth/cardchat/internal/card"
	"github.com/haleth/cardchat/internal/chat"
	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/store"
)

// SessionService orchestrates one chat session per flashcard: it is the only
// component that talks to both the conversation store and the chat client.
type SessionService interface {
	Open(ctx context.Context, cardCtx models.CardContext) (models.ConversationView, error)
	Submit(ctx context.Context, cardCtx models.CardContext, userText string) (models.Turn, error)
	Clear(ctx context.Context, cardID string) error
}

type sessionService struct {
	store  *store.Store
	client chat.Client

	// At most one outstanding submit per card. A second submit for the same
	// card while one is in flight is rejected as BUSY, never interleaved.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewSessionService creates a new SessionService. A nil client means no chat
// credential is configured; submits then fail with CONFIG_MISSING while
// opening and clearing conversations keep working.
func NewSessionService(st *store.Store, client chat.Client) SessionService {
	return &sessionService{
		store:    st,
		client:   client,
		inflight: make(map[string]struct{}),
	}
}

func (s *sessionService) Open(ctx context.Context, cardCtx models.CardContext) (models.ConversationView, error) {
	log := logger.FromContext(ctx)
	log.Debug("opening chat session: card_id=%s", cardCtx.CardID)

	conv, err := s.store.Load(ctx, cardCtx.CardID)
	if err != nil {
		return models.ConversationView{}, err
	}

	// The card text rides along as read-only context; it is never a turn.
	return models.ConversationView{
		CardID:  cardCtx.CardID,
		Context: card.BuildContext(cardCtx),
		Turns:   conv.Turns,
	}, nil
}

func (s *sessionService) Submit(ctx context.Context, cardCtx models.CardContext, userText string) (models.Turn, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(userText) == "" {
		return models.Turn{}, errors.NewValidationError("text", "must not be empty")
	}
	if s.client == nil {
		return models.Turn{}, errors.NewConfigMissingError("chat API key")
	}

	if !s.acquire(cardCtx.CardID) {
		log.Warn("rejecting concurrent submit: card_id=%s", cardCtx.CardID)
		return models.Turn{}, errors.NewBusyError(cardCtx.CardID)
	}
	defer s.release(cardCtx.CardID)

	log.Debug("submitting user turn: card_id=%s, text_len=%d", cardCtx.CardID, len(userText))

	// The user turn is persisted before the provider is contacted, so a
	// failed answer never loses the question.
	conv, err := s.store.Append(ctx, cardCtx.CardID, models.RoleUser, userText)
	if err != nil {
		log.Error("failed to persist user turn: %v", err)
		return models.Turn{}, err
	}

	// Detached from the caller's cancellation: closing the chat window must
	// not discard an answer that was already paid for. The response is still
	// appended and shows up next time the card's chat is opened.
	sendCtx := context.WithoutCancel(ctx)

	resp, err := s.client.Send(sendCtx, chat.Request{
		Context: card.BuildContext(cardCtx),
		Turns:   conv.Turns,
	})
	if err != nil {
		log.Warn("chat provider call failed, user turn retained: %v", err)
		return models.Turn{}, err
	}

	updated, err := s.store.Append(sendCtx, cardCtx.CardID, models.RoleAssistant, resp.Text)
	if err != nil {
		log.Error("failed to persist assistant turn: %v", err)
		return models.Turn{}, err
	}

	turn := updated.Turns[len(updated.Turns)-1]
	log.Info("assistant turn appended: card_id=%s, seq=%d", cardCtx.CardID, turn.Seq)
	return turn, nil
}

func (s *sessionService) Clear(ctx context.Context, cardID string) error {
	logger.FromContext(ctx).Debug("clearing chat session: card_id=%s", cardID)
	return s.store.Clear(ctx, cardID)
}

func (s *sessionService) acquire(cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[cardID]; busy {
		return false
	}
	s.inflight[cardID] = struct{}{}
	return true
}

func (s *sessionService) release(cardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, cardID)
}
