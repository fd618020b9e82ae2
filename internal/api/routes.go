package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Post("/cards/{cardID}/open", s.handleOpen)
	r.Get("/cards/{cardID}/conversation", s.handleGetConversation)
	r.Delete("/cards/{cardID}/conversation", s.handleClearConversation)
	r.Post("/cards/{cardID}/messages", s.handleSubmit)
	r.Post("/cards/{cardID}/summary", s.handleSummary)
	r.Post("/cards/{cardID}/cards", s.handleGenerateCards)

	r.Get("/conversations", s.handleListConversations)
	r.Post("/maintenance/prune", s.handlePrune)

	return r
}
