// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-rag/internal/types"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const actorKey ContextKey = "actor"

// TokenValidator validates bearer tokens. It lets the middleware work with
// any JWT implementation without importing it.
type TokenValidator interface {
	ValidateToken(tokenString string) (Principal, error)
}

// Principal is what a validated token says about its bearer.
type Principal interface {
	GetUserID() uuid.UUID
	GetRole() types.Role
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uuid.UUID
	Role   types.Role
}

// IsRecruiter reports whether the actor holds the recruiter role.
func (a Actor) IsRecruiter() bool {
	return a.Role == types.RoleRecruiter
}

// OptionalAuth attaches the actor of a valid bearer token to the request
// context. Requests without an Authorization header pass through
// anonymously; a malformed or invalid token is rejected with 401.
func OptionalAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "malformed authorization header")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := WithActor(r.Context(), Actor{UserID: claims.GetUserID(), Role: claims.GetRole()})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the authenticated caller, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}

// RequireRecruiter returns nil when the request was made by a recruiter. An
// anonymous caller gets an UnauthorizedError and any other role a
// ForbiddenError naming action.
func RequireRecruiter(ctx context.Context, action string) (Actor, error) {
	actor, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, &types.UnauthorizedError{}
	}
	if !actor.IsRecruiter() {
		return Actor{}, &types.ForbiddenError{Action: action}
	}
	return actor, nil
}
