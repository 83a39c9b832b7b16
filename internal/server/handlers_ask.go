package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/logger"
	"github.com/jonathan/resume-rag/internal/server/middleware"
	"github.com/jonathan/resume-rag/internal/types"
)

// handleAsk serves POST /ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req types.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := ""
	if actor, ok := middleware.ActorFrom(r.Context()); ok {
		userID = actor.UserID.String()
	}

	entry, err := s.deps.Ask.Ask(r.Context(), req.Query, req.K, userID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.logger.Debug("ask",
		zap.String("query", logger.Truncate(entry.Query, 80)),
		zap.Int("answers", len(entry.Answers)),
	)
	s.jsonResponse(w, http.StatusOK, types.AskResponse{ID: entry.ID, Answers: entry.Answers})
}

// handleAskHistory serves GET /ask/history?limit=. Only recruiters see who
// asked.
func (s *Server) handleAskHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	items, err := s.deps.Ask.History(r.Context(), limit)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []*types.AskQuery{}
	}
	if actor, ok := middleware.ActorFrom(r.Context()); !ok || !actor.Role.CanSeePII() {
		anon := make([]*types.AskQuery, len(items))
		for i, q := range items {
			cp := *q
			cp.UserID = ""
			anon[i] = &cp
		}
		items = anon
	}
	s.jsonResponse(w, http.StatusOK, listResponse[*types.AskQuery]{Items: items})
}
