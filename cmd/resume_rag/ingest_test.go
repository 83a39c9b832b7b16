package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/observability"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "nested", "b.md"), "b")
	writeFile(t, filepath.Join(dir, ".hidden", "c.txt"), "c")
	writeFile(t, filepath.Join(dir, "notes.xyz"), "x")
	writeFile(t, filepath.Join(dir, "README"), "r")

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "nested", "b.md"),
	}, files)

	explicit := filepath.Join(dir, "notes.xyz")
	files, err = collectFiles([]string{explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{explicit}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestIngestPaths(t *testing.T) {
	a := newTestApplication(t, memoryConfig(t))
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "jane.txt"), "Jane Doe\njane@example.com\n\nSkills: Go, Kubernetes, PostgreSQL\n")
	writeFile(t, filepath.Join(dir, "empty.txt"), "")

	var out bytes.Buffer
	stats, err := ingestPaths(t.Context(), a.resumes, "cli", []string{dir}, &out, observability.NewPrinter(&out), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ingestStats{Ingested: 1, Failed: 1}, stats)
	assert.Contains(t, out.String(), "OK   jane.txt")
	assert.Contains(t, out.String(), "FAIL ")
	assert.Contains(t, out.String(), "INGESTED jane.txt")

	n, err := a.docs.CountDocuments(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, err := a.resumes.Search(t.Context(), "kubernetes", 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestIngestPaths_CanceledContext(t *testing.T) {
	a := newTestApplication(t, memoryConfig(t))
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "Go developer")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := ingestPaths(ctx, a.resumes, "cli", []string{dir}, &bytes.Buffer{}, nil, zap.NewNop())
	assert.ErrorIs(t, err, context.Canceled)
}
