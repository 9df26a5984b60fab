package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/storage"
)

// ImageService stores uploaded sneaker photos and hands back their public URL.
type ImageService struct {
	store    storage.ObjectStore
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

// NewImageService creates an ImageService. maxBytes <= 0 disables the cap.
func NewImageService(store storage.ObjectStore, maxBytes int64, logger *zap.Logger) *ImageService {
	return &ImageService{store: store, maxBytes: maxBytes, now: time.Now, logger: logger}
}

// Upload stores the file under <userID>/<unix millis><ext> and returns its
// public URL. The extension comes from the sniffed image type. Non-image content and oversize files are validation errors;
// a storage failure is an upstream error.
func (s *ImageService) Upload(ctx context.Context, userID string, up *model.ImageUpload) (string, error) {
	if up == nil || up.Body == nil {
		return "", apperror.ValidationFailed("image_file", "no file was uploaded")
	}
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return "", tooLarge(s.maxBytes)
	}

	body := up.Body
	if s.maxBytes > 0 {
		// Size comes from the client; read one byte past the cap to catch liars.
		body = io.LimitReader(body, s.maxBytes+1)
	}
	contentType, body, err := storage.SniffImage(body)
	if err != nil {
		return "", err
	}

	key := storage.ObjectKey(userID, contentType, s.now())
	counted := &countingReader{r: body, limit: s.maxBytes}
	if err := s.store.Put(ctx, key, contentType, counted, up.Size); err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return "", tooLarge(s.maxBytes)
		}
		s.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
		return "", apperror.Upstream("image upload failed", err)
	}

	s.logger.Info("image uploaded", zap.String("key", key), zap.String("content_type", contentType))
	return s.store.PublicURL(key), nil
}

var errUploadTooLarge = errors.New("upload exceeds size limit")

func tooLarge(limit int64) error {
	return apperror.ValidationFailed("image_file", fmt.Sprintf("image must be %d bytes or smaller", limit))
}

// countingReader fails once more than limit bytes have been read.
type countingReader struct {
	r     io.Reader
	n     int64
	limit int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		return n, errUploadTooLarge
	}
	return n, err
}
