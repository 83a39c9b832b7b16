package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/server/middleware"
	"github.com/jonathan/resume-rag/internal/types"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// handleListResumes serves GET /resumes?q=&limit=&offset=.
func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	page, err := s.deps.Resumes.Search(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}

// handleGetResume serves GET /resumes/{id}. Contact details are only
// returned to recruiters.
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Resumes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, s.visible(r, doc))
}

func (s *Server) visible(r *http.Request, doc *types.ResumeDocument) *types.ResumeDocument {
	if actor, ok := middleware.ActorFrom(r.Context()); ok && actor.Role.CanSeePII() {
		return doc
	}
	return doc.WithoutPII()
}

// handleUploadResume serves POST /resumes with a multipart "file" field.
func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireRecruiter(r.Context(), "upload resumes")
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	if r.ContentLength > s.opts.MaxUploadBytes {
		s.errorResponse(w, http.StatusRequestEntityTooLarge,
			"upload exceeds "+strconv.FormatInt(s.opts.MaxUploadBytes, 10)+" bytes")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge,
				"upload exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	result, replayed, err := s.deps.Resumes.Upload(r.Context(), actor.UserID.String(), header.Filename, content, r.Header.Get("Idempotency-Key"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

// handleDownloadResume serves GET /resumes/{id}/download.
func (s *Server) handleDownloadResume(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireRecruiter(r.Context(), "download resumes"); err != nil {
		s.serviceError(w, r, err)
		return
	}

	doc, obj, err := s.deps.Resumes.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	if disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(obj.Data); err != nil {
		s.logger.Warn("failed to write download", zap.String("resume_id", doc.ID), zap.Error(err))
	}
}

// handleReextractResume serves POST /resumes/{id}/reextract.
func (s *Server) handleReextractResume(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireRecruiter(r.Context(), "re-extract resumes"); err != nil {
		s.serviceError(w, r, err)
		return
	}

	doc, err := s.deps.Resumes.Reextract(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, doc)
}

// handleAnalytics serves GET /resumes/analytics/basic.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.deps.Resumes.Analytics(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, analytics)
}
