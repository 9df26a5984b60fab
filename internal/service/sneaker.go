package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
	"github.com/sakif/sneaker-rotation/internal/collection"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/repository"
	"github.com/sakif/sneaker-rotation/internal/validation"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, userID string, up *model.ImageUpload) (string, error)
}

// SneakerService is the record-access layer for sneakers plus the derived
// list views built on it.
//
// RULES:
//   - The owner always comes from the session, never from the payload.
//   - Only the owner may update or delete. The store enforces this as well
//     (WHERE id AND user_id); the service checks first so the caller gets
//     403 instead of a misleading 404.
//   - An uploaded file wins over any image URL in the form, and is stored
//     before the record is touched. If the upload fails nothing is written.
//   - No retries. A store error is returned as is.
type SneakerService struct {
	sneakers repository.SneakerRepository
	images   Uploader
	validate *validation.Validator
	logger   *zap.Logger
}

// NewSneakerService wires a SneakerService.
func NewSneakerService(
	sneakers repository.SneakerRepository,
	images Uploader,
	validate *validation.Validator,
	logger *zap.Logger,
) *SneakerService {
	return &SneakerService{sneakers: sneakers, images: images, validate: validate, logger: logger}
}

// Create adds a sneaker to userID's collection. upload may be nil.
func (s *SneakerService) Create(ctx context.Context, userID string, in model.NewSneaker, upload *model.ImageUpload) (*model.Sneaker, error) {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Title = strings.TrimSpace(in.Title)
	in.Tag = strings.TrimSpace(in.Tag)
	in.Image = trimOptional(in.Image)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	if upload != nil {
		url, err := s.images.Upload(ctx, userID, upload)
		if err != nil {
			return nil, err
		}
		in.Image = &url
	}
	if in.Image != nil && *in.Image == "" {
		in.Image = nil
	}

	sn := &model.Sneaker{
		UserID:     userID,
		Brand:      in.Brand,
		Title:      in.Title,
		Tag:        in.Tag,
		Rating:     in.Rating,
		Image:      in.Image,
		InRotation: in.InRotation,
	}
	if err := s.sneakers.Create(ctx, sn); err != nil {
		return nil, fmt.Errorf("service/sneaker: creating: %w", err)
	}

	s.logger.Info("sneaker created", zap.String("id", sn.ID), zap.String("user_id", userID))
	return sn, nil
}

// Get returns one sneaker by ID. Any signed-in user may read any record.
func (s *SneakerService) Get(ctx context.Context, id string) (*model.Sneaker, error) {
	sn, err := s.sneakers.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStore("getting "+id, err)
	}
	return sn, nil
}

// Update applies a partial update. Absent fields are left as stored;
// an Image of "" clears the image. upload may be nil.
func (s *SneakerService) Update(ctx context.Context, userID, id string, patch model.SneakerPatch, upload *model.ImageUpload) (*model.Sneaker, error) {
	patch.Brand = trimOptional(patch.Brand)
	patch.Title = trimOptional(patch.Title)
	patch.Tag = trimOptional(patch.Tag)
	patch.Image = trimOptional(patch.Image)
	if patch.IsEmpty() && upload == nil {
		return nil, apperror.ValidationFailed("", "nothing to update")
	}
	if err := s.validate.Validate(patch); err != nil {
		return nil, err
	}

	if err := s.checkOwner(ctx, userID, id, "edit"); err != nil {
		return nil, err
	}

	if upload != nil {
		url, err := s.images.Upload(ctx, userID, upload)
		if err != nil {
			return nil, err
		}
		patch.Image = &url
	}

	sn, err := s.sneakers.Update(ctx, id, userID, patch)
	if err != nil {
		return nil, wrapStore("updating "+id, err)
	}
	s.logger.Info("sneaker updated", zap.String("id", id), zap.String("user_id", userID))
	return sn, nil
}

// SetRotation flips the in-rotation flag. It is an update of that one field.
func (s *SneakerService) SetRotation(ctx context.Context, userID, id string, inRotation bool) (*model.Sneaker, error) {
	return s.Update(ctx, userID, id, model.SneakerPatch{InRotation: &inRotation}, nil)
}

// Delete removes a sneaker. The caller must pass confirmed=true; an
// unconfirmed delete fails before the store is consulted at all.
func (s *SneakerService) Delete(ctx context.Context, userID, id string, confirmed bool) (*model.Sneaker, error) {
	if !confirmed {
		return nil, apperror.ValidationFailed("confirm", "deletion must be confirmed")
	}
	if err := s.checkOwner(ctx, userID, id, "delete"); err != nil {
		return nil, err
	}

	sn, err := s.sneakers.Delete(ctx, id, userID)
	if err != nil {
		return nil, wrapStore("deleting "+id, err)
	}
	s.logger.Info("sneaker deleted", zap.String("id", id), zap.String("user_id", userID))
	return sn, nil
}

// Collection fetches userID's sneakers and derives the filtered view.
// The tag list always comes from the whole collection, not the visible part.
func (s *SneakerService) Collection(ctx context.Context, userID string, f model.Filter) (model.CollectionView, error) {
	f.Tag = strings.TrimSpace(f.Tag)
	records, err := s.sneakers.List(ctx, repository.SneakerQuery{UserID: userID})
	if err != nil {
		return model.CollectionView{}, wrapStore("listing", err)
	}
	return collection.Derive(records, f), nil
}

// Rotation returns the rotation cards. The in_rotation predicate runs in
// the store.
func (s *SneakerService) Rotation(ctx context.Context, userID string) ([]model.RotationSlot, error) {
	inRotation := true
	records, err := s.sneakers.List(ctx, repository.SneakerQuery{UserID: userID, InRotation: &inRotation})
	if err != nil {
		return nil, wrapStore("listing rotation", err)
	}
	return collection.RotationSlots(records), nil
}

// UploadImage stores a file on its own (the standalone upload endpoint).
func (s *SneakerService) UploadImage(ctx context.Context, userID string, up *model.ImageUpload) (string, error) {
	return s.images.Upload(ctx, userID, up)
}

func (s *SneakerService) checkOwner(ctx context.Context, userID, id, verb string) error {
	existing, err := s.sneakers.GetByID(ctx, id)
	if err != nil {
		return wrapStore("getting "+id, err)
	}
	if existing.UserID != userID {
		s.logger.Warn("foreign write refused",
			zap.String("id", id), zap.String("user_id", userID), zap.String("op", verb))
		return apperror.Forbidden("you can only " + verb + " your own sneakers")
	}
	return nil
}

// wrapStore keeps apperror values intact so handlers can map them and
// wraps everything else with context.
func wrapStore(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("service/sneaker: %s: %w", op, err)
}

func trimOptional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
