package service

import (
	"context"
	"fmt"

	"github.com/sakif/sneaker-rotation/internal/collection"
	"github.com/sakif/sneaker-rotation/internal/model"
	"github.com/sakif/sneaker-rotation/internal/repository"
)

// ProfileService serves the public side: the user directory and other
// people's collections.
type ProfileService struct {
	profiles repository.ProfileRepository
	sneakers repository.SneakerRepository
}

// NewProfileService wires a ProfileService.
func NewProfileService(profiles repository.ProfileRepository, sneakers repository.SneakerRepository) *ProfileService {
	return &ProfileService{profiles: profiles, sneakers: sneakers}
}

// List returns every profile ordered by username.
func (s *ProfileService) List(ctx context.Context) ([]model.Profile, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/profile: listing: %w", err)
	}
	return profiles, nil
}

// PublicProfile returns a user's profile and their collection in display form.
func (s *ProfileService) PublicProfile(ctx context.Context, userID string) (*model.PublicProfile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, wrapStore("getting profile "+userID, err)
	}
	records, err := s.sneakers.List(ctx, repository.SneakerQuery{UserID: userID})
	if err != nil {
		return nil, wrapStore("listing sneakers of "+userID, err)
	}
	views := collection.DisplayAll(records)
	return &model.PublicProfile{Profile: *p, Sneakers: views, Empty: len(views) == 0}, nil
}
