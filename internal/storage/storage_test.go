package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/config"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", "u1/1700000000123.png"},
		{"image/jpeg", "u1/1700000000123.jpg"},
		{"image/webp", "u1/1700000000123.webp"},
		{"text/html; charset=utf-8", "u1/1700000000123"},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey("u1", tt.contentType, now))
		})
	}
}

func TestSniffImage(t *testing.T) {
	t.Run("png passes and body is intact", func(t *testing.T) {
		ct, r, err := SniffImage(bytes.NewReader(pngHeader))
		require.NoError(t, err)
		assert.Equal(t, "image/png", ct)

		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, got)
	})

	t.Run("text is rejected", func(t *testing.T) {
		_, _, err := SniffImage(strings.NewReader("definitely not a picture"))
		require.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("image types without a fixed extension are rejected", func(t *testing.T) {
		ico := append([]byte("\x00\x00\x01\x00"), bytes.Repeat([]byte{0}, 32)...)
		_, _, err := SniffImage(bytes.NewReader(ico))
		require.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("empty is rejected", func(t *testing.T) {
		_, _, err := SniffImage(strings.NewReader(""))
		require.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("body larger than the peek window", func(t *testing.T) {
		big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 4096)...)
		_, r, err := SniffImage(bytes.NewReader(big))
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Len(t, got, len(big))
	})
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestNew_Local(t *testing.T) {
	dir := t.TempDir()
	s, err := New(context.Background(), config.StorageConfig{
		Driver:        "local",
		LocalDir:      dir,
		PublicBaseURL: "http://localhost:8080/uploads/",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/u1/1.png", s.PublicURL("u1/1.png"))
}
