package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-rag/internal/types"
)

// testTokenValidator accepts a fixed set of tokens.
type testTokenValidator struct {
	valid map[string]Actor
}

func (v *testTokenValidator) ValidateToken(tokenString string) (Principal, error) {
	actor, ok := v.valid[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return &testClaims{actor: actor}, nil
}

type testClaims struct {
	actor Actor
}

func (c *testClaims) GetUserID() uuid.UUID { return c.actor.UserID }
func (c *testClaims) GetRole() types.Role  { return c.actor.Role }

func TestOptionalAuth(t *testing.T) {
	recruiter := Actor{UserID: uuid.New(), Role: types.RoleRecruiter}
	validator := &testTokenValidator{valid: map[string]Actor{"good": recruiter}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  bool
	}{
		{name: "anonymous", wantStatus: http.StatusOK},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK, wantActor: true},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK, wantActor: true},
		{name: "invalid token", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "missing token", header: "Bearer", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Actor
			var gotOK bool
			handler := OptionalAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, gotOK = ActorFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/resumes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantActor, gotOK)
			if tt.wantActor {
				assert.Equal(t, recruiter, got)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestRequireRecruiter(t *testing.T) {
	_, err := RequireRecruiter(context.Background(), "upload")
	var ue *types.UnauthorizedError
	assert.ErrorAs(t, err, &ue)

	viewerCtx := WithActor(context.Background(), Actor{UserID: uuid.New(), Role: types.RoleViewer})
	_, err = RequireRecruiter(viewerCtx, "upload")
	var fe *types.ForbiddenError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "recruiter role required to upload", err.Error())

	id := uuid.New()
	recruiterCtx := WithActor(context.Background(), Actor{UserID: id, Role: types.RoleRecruiter})
	actor, err := RequireRecruiter(recruiterCtx, "upload")
	require.NoError(t, err)
	assert.Equal(t, id, actor.UserID)
}
