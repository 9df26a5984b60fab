package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "uploads"), "http://localhost:8080/uploads")
	require.NoError(t, err)

	err = s.Put(context.Background(), "u1/1700000000000.png", "image/png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "uploads", "u1", "1700000000000.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, got)

	entries, err := os.ReadDir(filepath.Join(dir, "uploads", "u1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x/uploads")
	require.NoError(t, err)

	err = s.Put(context.Background(), "../escape.png", "image/png", bytes.NewReader(pngHeader), 0)
	require.Error(t, err)

	err = s.Put(context.Background(), "", "image/png", bytes.NewReader(pngHeader), 0)
	require.Error(t, err)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Put(ctx, "u1/1.png", "image/png", bytes.NewReader(pngHeader), 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_PublicURL(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://localhost:8080/uploads/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/u1/2.jpg", s.PublicURL("u1/2.jpg"))
}

func TestLocalStore_Handler(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x/uploads")
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "u1/1.png", "image/png", bytes.NewReader(pngHeader), 0))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/u1/1.png", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())
}
