package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/models"
)

type openRequest struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type submitRequest struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Text  string `json:"text" validate:"required"`
}

// handleOpen loads a card's conversation and seeds the view with the card's
// visible text. The host calls this when the chat window opens.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	log := logger.FromContext(r.Context())
	log.Debug("opening session: card_id=%s", cardID)

	var req openRequest
	if err := s.decodeJSON(r, &req, true); err != nil {
		handleError(w, r, err)
		return
	}

	view, err := s.Sessions.Open(r.Context(), models.CardContext{
		CardID: cardID,
		Front:  req.Front,
		Back:   req.Back,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, view)
}

// handleGetConversation returns the stored turns without card context.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")

	view, err := s.Sessions.Open(r.Context(), models.CardContext{CardID: cardID})
	if err != nil {
		handleError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, view)
}

// handleSubmit appends the user's turn, asks the provider for an answer, and
// returns the appended assistant turn.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	log := logger.FromContext(r.Context())

	var req submitRequest
	if err := s.decodeJSON(r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}

	log.Debug("submit: card_id=%s, text_len=%d", cardID, len(req.Text))

	turn, err := s.Sessions.Submit(r.Context(), models.CardContext{
		CardID: cardID,
		Front:  req.Front,
		Back:   req.Back,
	}, req.Text)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("submit completed: card_id=%s", cardID)
	s.respondJSON(w, r, http.StatusOK, map[string]any{"turn": turn})
}

// handleClearConversation deletes a card's chat history.
func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	log := logger.FromContext(r.Context())
	log.Debug("clearing conversation: card_id=%s", cardID)

	if err := s.Sessions.Clear(r.Context(), cardID); err != nil {
		handleError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusNoContent, nil)
}
