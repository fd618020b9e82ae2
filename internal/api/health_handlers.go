package api

import "net/http"

// handleHealth reports liveness and whether a chat credential is configured,
// so the host can tell the user before the first submit rather than at it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, r, http.StatusOK, map[string]any{
		"status":     "ok",
		"chat_ready": s.ChatReady,
		"provider":   s.ChatProvider,
	})
}
