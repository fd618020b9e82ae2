package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/haleth/cardchat/internal/errors"
	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/models"
	"github.com/haleth/cardchat/internal/worker"
)

type pruneRequest struct {
	LiveCardIDs []string `json:"live_card_ids" validate:"required,min=1,dive,required"`
}

// handleListConversations returns summaries of stored conversations for
// inspection, newest first.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var filter models.ConversationFilter
	q := r.URL.Query()
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			handleError(w, r, errors.NewBadRequestError("since must be RFC 3339"))
			return
		}
		filter.Since = &t
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	infos, err := s.Store.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Debug("listed %d conversations", len(infos))
	s.respondJSON(w, r, http.StatusOK, map[string]any{"conversations": infos})
}

// handlePrune enqueues removal of conversations for cards the host no longer
// has. The scan runs on the maintenance pool; the host is not kept waiting.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req pruneRequest
	if err := s.decodeJSON(r, &req, false); err != nil {
		handleError(w, r, err)
		return
	}

	job := &worker.PruneConversationsJob{
		Store:       s.Store,
		LiveCardIDs: req.LiveCardIDs,
	}
	if !s.MaintenancePool.TrySubmit(job) {
		handleError(w, r, &errors.AppError{
			Code:    errors.ErrCodeBusy,
			Message: "maintenance queue is full, retry later",
			Status:  http.StatusServiceUnavailable,
		})
		return
	}

	log.Info("prune job enqueued: live_cards=%d", len(req.LiveCardIDs))
	s.respondJSON(w, r, http.StatusAccepted, map[string]any{"status": "queued"})
}
