// Package storage holds uploaded sneaker images. Two backends exist: a local
// directory served by the HTTP server under /uploads, and any S3-compatible
// bucket (AWS S3, MinIO).
package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/config"
)

// ObjectStore is where image bytes live. Put must not return until the
// object is readable at PublicURL(key).
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PublicURL(key string) string
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (ObjectStore, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		s, err := NewS3Store(ctx, cfg, WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// imageExtensions lists the content types SniffImage accepts and the
// extension each one gets in its object key.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ObjectKey names an uploaded file: <userID>/<unix millis><ext>. The
// extension follows the sniffed contentType, never the client filename, so
// whatever serves the object by extension serves it as that image type.
func ObjectKey(userID, contentType string, now time.Time) string {
	return path.Join(userID, strconv.FormatInt(now.UnixMilli(), 10)+imageExtensions[contentType])
}

// SniffImage peeks at the first bytes of body and rejects anything that is
// not an image. The returned reader still yields the whole body.
func SniffImage(body io.Reader) (contentType string, r io.Reader, err error) {
	br := bufio.NewReaderSize(body, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", nil, fmt.Errorf("storage: reading upload: %w", err)
	}
	if len(head) == 0 {
		return "", nil, apperror.ValidationFailed("image_file", "image file is empty")
	}
	contentType = http.DetectContentType(head)
	if _, ok := imageExtensions[contentType]; !ok {
		return "", nil, apperror.ValidationFailed("image_file", "only image uploads are allowed")
	}
	return contentType, br, nil
}
