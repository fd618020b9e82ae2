package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haleth/cardchat/internal/logger"
)

type generateRequest struct {
	Count int `json:"count" validate:"omitempty,min=1,max=20"`
}

// handleSummary produces study notes from the card's stored conversation.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	log := logger.FromContext(r.Context())
	log.Debug("summarizing conversation: card_id=%s", cardID)

	summary, err := s.StudyTools.Summarize(r.Context(), cardID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"summary": summary})
}

// handleGenerateCards proposes new flashcards from the stored conversation.
func (s *Server) handleGenerateCards(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	log := logger.FromContext(r.Context())

	var req generateRequest
	if err := s.decodeJSON(r, &req, true); err != nil {
		handleError(w, r, err)
		return
	}

	log.Debug("generating cards: card_id=%s, count=%d", cardID, req.Count)

	cards, err := s.StudyTools.GenerateCards(r.Context(), cardID, req.Count)
	if err != nil {
		handleError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"cards": cards})
}
