package resumes

import (
	"archive/zip"
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/blob"
	"github.com/jonathan/resume-rag/internal/idempotency"
	"github.com/jonathan/resume-rag/internal/index"
	"github.com/jonathan/resume-rag/internal/store"
	"github.com/jonathan/resume-rag/internal/types"
)

var (
	anaResume = []byte("Ana Lopez\nana@example.com\n\nBackend engineer. Built Kubernetes operators in Go.")
	boResume  = []byte("# Bo Chen\n\nFrontend developer using React and GraphQL.")
)

type fixture struct {
	svc   *Service
	docs  *store.Memory
	blobs *blob.Memory
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	docs := store.NewMemory()
	blobs := blob.NewMemory()
	svc := New(docs, blobs, index.New(nil, index.DefaultWeights()), nil, nil, zap.NewNop(), opts...)
	return &fixture{svc: svc, docs: docs, blobs: blobs}
}

// stepClock returns the given instants in order, repeating the last one.
func stepClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestUpload_SingleFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, replayed, err := f.svc.Upload(ctx, "u1", "ana.txt", anaResume, "")
	require.NoError(t, err)
	assert.False(t, replayed)
	require.Len(t, res.Items, 1)
	assert.Equal(t, []string{"go", "kubernetes"}, res.Items[0].Skills)

	doc, err := f.svc.Get(ctx, res.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "ana.txt", doc.Filename)
	assert.Equal(t, "u1", doc.UploadedBy)
	assert.Equal(t, "text/plain; charset=utf-8", doc.ContentType)
	assert.Len(t, doc.ContentHash, 64)
	require.NotNil(t, doc.PII)
	assert.Equal(t, "ana@example.com", doc.PII.Email)
	assert.NotNil(t, doc.Education)
	assert.NotNil(t, doc.Projects)
}

func TestUpload_InvalidFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"empty", "ana.txt", nil},
		{"legacy doc", "ana.doc", []byte("binary")},
		{"blank text", "ana.txt", []byte("   \n ")},
		{"invalid structured resume", "ana.json", []byte(`{"skills": ["go"]}`)},
		{"archive without resumes", "batch.zip", buildZip(t, map[string][]byte{"notes.doc": []byte("x")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Upload(ctx, "u1", tt.filename, tt.content, "")
			assert.True(t, types.IsInvalidArgument(err), "got %v", err)
		})
	}

	n, err := f.docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpload_Archive(t *testing.T) {
	f := newFixture(t, WithConcurrency(2))
	archive := buildZip(t, map[string][]byte{
		"a/ana.txt": anaResume,
		"b/bo.md":   boResume,
		"c.doc":     []byte("legacy"),
		"bad.json":  []byte(`{"skills": []}`),
	})

	res, _, err := f.svc.Upload(context.Background(), "u1", "batch.zip", archive, "")
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "a/ana.txt", res.Items[0].Filename)
	assert.Equal(t, "b/bo.md", res.Items[1].Filename)

	var skipped []string
	for _, s := range res.Skipped {
		skipped = append(skipped, s.Filename)
		assert.NotEmpty(t, s.Reason)
	}
	assert.ElementsMatch(t, []string{"c.doc", "bad.json"}, skipped)

	page, err := f.svc.Search(context.Background(), "graphql", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, res.Items[1].ID, page.Items[0].ID)
}

func TestUpload_Idempotent(t *testing.T) {
	guard := idempotency.NewGuard(idempotency.NewMemory(), time.Hour, zap.NewNop())
	f := newFixture(t, WithIdempotency(guard))
	ctx := context.Background()

	first, replayed, err := f.svc.Upload(ctx, "u1", "ana.txt", anaResume, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.svc.Upload(ctx, "u1", "ana.txt", anaResume, "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.Items[0].ID, second.Items[0].ID)

	n, err := f.docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _, err = f.svc.Upload(ctx, "u1", "ana.txt", boResume, "key-1")
	var ce *types.ConflictError
	assert.ErrorAs(t, err, &ce)

	// Another user may reuse the same key.
	_, replayed, err = f.svc.Upload(ctx, "u2", "ana.txt", anaResume, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)
}

// gatedExtractor blocks its first call until release is closed.
type gatedExtractor struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedExtractor) Extract(ctx context.Context, _ string) ([]string, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.started)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func TestUpload_IdempotencyKeyInFlightWithDifferentPayload(t *testing.T) {
	docs := store.NewMemory()
	ext := &gatedExtractor{started: make(chan struct{}), release: make(chan struct{})}
	guard := idempotency.NewGuard(idempotency.NewMemory(), time.Hour, zap.NewNop())
	svc := New(docs, blob.NewMemory(), index.New(nil, index.DefaultWeights()), ext, nil, zap.NewNop(), WithIdempotency(guard))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Upload(ctx, "u1", "ana.txt", anaResume, "key-1")
		done <- err
	}()
	<-ext.started

	_, _, err := svc.Upload(ctx, "u1", "bo.txt", boResume, "key-1")
	var ce *types.ConflictError
	require.ErrorAs(t, err, &ce)

	close(ext.release)
	require.NoError(t, <-done)

	n, err := docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, _, err := f.svc.Upload(ctx, "u1", "ana.txt", anaResume, "")
	require.NoError(t, err)

	doc, obj, err := f.svc.Download(ctx, res.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "ana.txt", doc.Filename)
	assert.Equal(t, anaResume, obj.Data)
	assert.Equal(t, "text/plain; charset=utf-8", obj.ContentType)

	_, _, err = f.svc.Download(ctx, "missing")
	assert.True(t, types.IsNotFound(err))
}

func TestReextract_ReplacesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, _, err := f.svc.Upload(ctx, "u1", "ana.txt", anaResume, "")
	require.NoError(t, err)
	id := res.Items[0].ID

	before, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, f.blobs.Put(ctx, before.BlobKey, blob.Object{
		Data:        []byte("Ana Lopez\nPython data engineer."),
		ContentType: "text/plain; charset=utf-8",
	}))

	after, err := f.svc.Reextract(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, after.ID)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, "u1", after.UploadedBy)
	assert.Equal(t, []string{"python"}, after.Skills)
	assert.NotEqual(t, before.ContentHash, after.ContentHash)

	old, err := f.svc.Search(ctx, "kubernetes", 0, 0)
	require.NoError(t, err)
	assert.Zero(t, old.Total)

	fresh, err := f.svc.Search(ctx, "python", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, fresh.Total)
	assert.Equal(t, id, fresh.Items[0].ID)

	_, err = f.svc.Reextract(ctx, "missing")
	assert.True(t, types.IsNotFound(err))
}

func TestRebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Upload(ctx, "u1", "ana.txt", anaResume, "")
	require.NoError(t, err)
	_, _, err = f.svc.Upload(ctx, "u1", "bo.md", boResume, "")
	require.NoError(t, err)

	restarted := New(f.docs, f.blobs, index.New(nil, index.DefaultWeights()), nil, nil, zap.NewNop())
	page, err := restarted.Search(ctx, "react", 0, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	n, err := restarted.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err = restarted.Search(ctx, "react", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestSearch(t *testing.T) {
	jan := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(stepClock(jan, feb)))
	ctx := context.Background()

	ana, _, err := f.svc.Upload(ctx, "u1", "ana.txt", anaResume, "")
	require.NoError(t, err)
	bo, _, err := f.svc.Upload(ctx, "u1", "bo.md", boResume, "")
	require.NoError(t, err)

	page, err := f.svc.Search(ctx, "Kubernetes", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	hit := page.Items[0]
	assert.Equal(t, ana.Items[0].ID, hit.ID)
	assert.Equal(t, 100.0, hit.Score)
	assert.Equal(t, []string{"kubernetes"}, hit.MatchedSkills)
	assert.Contains(t, hit.Snippet, "Kubernetes")
	require.NotEmpty(t, hit.Highlights)
	runes := []rune(hit.Snippet)
	h := hit.Highlights[0]
	assert.Equal(t, "Kubernetes", string(runes[h.Offset:h.Offset+h.Length]))

	all, err := f.svc.Search(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)
	assert.Equal(t, bo.Items[0].ID, all.Items[0].ID, "newest first")
	assert.Zero(t, all.Items[0].Score)
	assert.Empty(t, all.Items[0].Snippet)
	assert.Equal(t, 20, all.Limit)

	_, err = f.svc.Search(ctx, "go", -1, 0)
	assert.True(t, types.IsInvalidArgument(err))
}

func TestAnalytics(t *testing.T) {
	jan := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(stepClock(feb, jan, feb)))
	ctx := context.Background()

	for _, up := range []struct {
		name string
		body []byte
	}{
		{"ana.txt", anaResume},
		{"bo.md", boResume},
		{"cy.txt", []byte("Cy Diaz\nGo and React developer.")},
	} {
		_, _, err := f.svc.Upload(ctx, "u1", up.name, up.body, "")
		require.NoError(t, err)
	}

	a, err := f.svc.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, a.TotalResumes)
	assert.Equal(t, []types.SkillCount{
		{Skill: "go", Count: 2},
		{Skill: "react", Count: 2},
		{Skill: "graphql", Count: 1},
		{Skill: "kubernetes", Count: 1},
	}, a.TopSkills)
	assert.Equal(t, []types.MonthCount{
		{Month: "2024-01", Count: 1},
		{Month: "2024-02", Count: 2},
	}, a.UploadsPerMonth)

	empty, err := newFixture(t).svc.Analytics(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalResumes)
	assert.Empty(t, empty.TopSkills)
	assert.Empty(t, empty.UploadsPerMonth)
}
