package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/haleth/cardchat/internal/logger"
	"github.com/haleth/cardchat/internal/services"
	"github.com/haleth/cardchat/internal/store"
	"github.com/haleth/cardchat/internal/worker"
)

// Server holds the wired services behind the host-facing HTTP API.
type Server struct {
	Sessions        services.SessionService
	StudyTools      services.StudyToolsService
	Store           *store.Store
	MaintenancePool *worker.Pool
	ChatReady       bool
	ChatProvider    string

	validate *validator.Validate
}

// NewServer creates a Server with request validation initialized.
func NewServer(sessions services.SessionService, tools services.StudyToolsService, st *store.Store, pool *worker.Pool, chatReady bool, provider string) *Server {
	return &Server{
		Sessions:        sessions,
		StudyTools:      tools,
		Store:           st,
		MaintenancePool: pool,
		ChatReady:       chatReady,
		ChatProvider:    provider,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response: %v", err)
	}
}
