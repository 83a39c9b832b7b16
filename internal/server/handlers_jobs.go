package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/resume-rag/internal/server/middleware"
	"github.com/jonathan/resume-rag/internal/types"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// handleCreateJob serves POST /jobs.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireRecruiter(r.Context(), "create jobs")
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	var req types.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.serviceError(w, r, err)
		return
	}

	job, err := s.deps.Matcher.CreateJob(r.Context(), &req, actor.UserID.String())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

// handleListJobs serves GET /jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Matcher.ListJobs(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*types.Job{}
	}
	s.jsonResponse(w, http.StatusOK, listResponse[*types.Job]{Items: jobs})
}

// handleGetJob serves GET /jobs/{id}.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Matcher.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleMatchJob serves GET and POST /jobs/{id}/match. top_n comes from the
// query string, or from the POST body when the query has none.
func (s *Server) handleMatchJob(w http.ResponseWriter, r *http.Request) {
	topN, err := queryInt(r, "top_n")
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	if r.Method == http.MethodPost && r.URL.Query().Get("top_n") == "" {
		var req types.MatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.errorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
		topN = req.TopN
	}

	resp, err := s.deps.Matcher.Match(r.Context(), r.PathValue("id"), topN)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
