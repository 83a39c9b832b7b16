package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/ask"
	"github.com/jonathan/resume-rag/internal/blob"
	"github.com/jonathan/resume-rag/internal/config"
	"github.com/jonathan/resume-rag/internal/history"
	"github.com/jonathan/resume-rag/internal/idempotency"
	"github.com/jonathan/resume-rag/internal/index"
	"github.com/jonathan/resume-rag/internal/matching"
	"github.com/jonathan/resume-rag/internal/resumes"
	"github.com/jonathan/resume-rag/internal/server/ratelimit"
	"github.com/jonathan/resume-rag/internal/store"
	"github.com/jonathan/resume-rag/internal/types"
)

var (
	anaResume = []byte("Ana Lopez\nana@example.com\n\nBackend engineer. Built Kubernetes operators in Go.")
	boResume  = []byte("Bo Chen\nbo@example.com\n\nFrontend developer using React and GraphQL.")
)

type testEnv struct {
	handler http.Handler
	jwt     *JWTService
	users   *UserService
	store   *store.Memory
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	mem := store.NewMemory()
	ix := index.New(nil, index.DefaultWeights())

	guard := idempotency.NewGuard(idempotency.NewMemory(), idempotency.DefaultTTL, logger)
	resumeSvc := resumes.New(mem, blob.NewMemory(), ix, nil, nil, logger, resumes.WithIdempotency(guard))
	matcher, err := matching.New(mem, ix, nil, logger)
	require.NoError(t, err)
	engine := ask.New(ix, history.NewMemory(), nil, 0, logger)

	jwtCfg, err := config.NewJWTConfig("test-secret", 1)
	require.NoError(t, err)
	pwCfg, err := config.NewPasswordConfig(4, "")
	require.NoError(t, err)
	jwtSvc := NewJWTService(jwtCfg)
	users := NewUserService(mem, pwCfg)

	opts := Options{RateLimit: &ratelimit.Config{Enabled: false}}
	for _, m := range mutate {
		m(&opts)
	}
	srv := New(Deps{
		Resumes: resumeSvc,
		Matcher: matcher,
		Ask:     engine,
		Users:   users,
		JWT:     jwtSvc,
		Docs:    mem,
		Logger:  logger,
	}, opts)
	t.Cleanup(srv.rateLimiter.Stop)

	return &testEnv{handler: srv.Handler(), jwt: jwtSvc, users: users, store: mem}
}

func (e *testEnv) token(t *testing.T, role types.Role) string {
	t.Helper()
	tok, err := e.jwt.GenerateToken(uuid.New(), role)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, token, filename string, content []byte, idempotencyKey string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// seed uploads a resume as a recruiter and returns its id.
func (e *testEnv) seed(t *testing.T, filename string, content []byte) string {
	t.Helper()
	rec := e.upload(t, e.token(t, types.RoleRecruiter), filename, content, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[types.UploadResult](t, rec)
	require.Len(t, res.Items, 1)
	return res.Items[0].ID
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "ana.txt", anaResume)

	for _, path := range []string{"/health", "/api/health"} {
		rec := env.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.EqualValues(t, 1, body["resumes"])
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/resumes", nil)
	req.Header.Set("Origin", "http://ui.test")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORS_AllowList(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.CORSOrigins = []string{"http://ui.test"} })

	for _, tt := range []struct {
		origin string
		want   string
	}{
		{"http://ui.test", "http://ui.test"},
		{"http://evil.test", ""},
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"), tt.origin)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.RateLimit = &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{
				{Path: "/ask", Method: http.MethodPost, Limit: 1, Window: time.Hour, Burst: 1},
			},
		}
	})

	rec := env.do(t, http.MethodPost, "/api/ask", "", map[string]any{"query": "go"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = env.do(t, http.MethodPost, "/ask", "", map[string]any{"query": "go"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, errorMessage(t, rec))

	rec = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/resumes", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, errorMessage(t, rec))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
