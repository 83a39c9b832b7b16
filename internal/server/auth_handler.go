package server

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/resume-rag/internal/types"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	server      *Server
	userService *UserService
	jwtService  *JWTService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(s *Server, userService *UserService, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		server:      s,
		userService: userService,
		jwtService:  jwtService,
	}
}

func (h *AuthHandler) configured(w http.ResponseWriter) bool {
	if h.userService == nil || h.jwtService == nil {
		h.server.errorResponse(w, http.StatusServiceUnavailable, "authentication is not configured")
		return false
	}
	return true
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req types.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.server.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.server.serviceError(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.server.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		h.server.serviceError(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *types.User) {
	token, err := h.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.server.serviceError(w, r, err)
		return
	}
	h.server.jsonResponse(w, status, types.LoginResponse{User: user, Token: token})
}
