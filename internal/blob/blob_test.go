package blob

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"cv.pdf", "d1/cv.pdf"},
		{"batch/sub/cv.pdf", "d1/cv.pdf"},
		{`C:\Users\ana\cv.docx`, "d1/cv.docx"},
		{"", "d1/original"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, Key("d1", tt.filename))
		})
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "d1/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "d1/cv.txt", Object{Data: []byte("v1"), ContentType: "text/plain"}))
	require.NoError(t, s.Put(ctx, "d1/cv.txt", Object{Data: []byte("v2"), ContentType: "text/plain"}))

	obj, err := s.Get(ctx, "d1/cv.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), obj.Data)
	assert.Equal(t, "text/plain", obj.ContentType)

	assert.Error(t, s.Put(ctx, "../escape", Object{Data: []byte("x")}))
	assert.Error(t, s.Put(ctx, "", Object{Data: []byte("x")}))
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestLocal(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	testStore(t, l)
}

func TestLocal_DefaultContentType(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, l.Put(context.Background(), "d2/raw", Object{Data: []byte{1, 2}}))
	obj, err := l.Get(context.Background(), "d2/raw")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", obj.ContentType)
}

func TestMinIO_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_TEST_ENDPOINT not set")
	}
	m, err := NewMinIO(context.Background(), MinIOConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_TEST_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_TEST_SECRET_KEY"),
		Bucket:    "resume-rag-test",
	}, zap.NewNop())
	require.NoError(t, err)
	testStore(t, m)
}
