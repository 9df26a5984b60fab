// Package repository defines the persistence interfaces the services depend on.
//
// Two implementations live in sub-packages: sqlite (single file, the default)
// and postgres (pgx pool). Both enforce record ownership in SQL: every update
// and delete is keyed by id AND user_id, so a caller can never change a row
// it does not own even if a service check were skipped.
package repository

import (
	"context"

	"github.com/sakif/sneaker-rotation/internal/model"
)

// SneakerQuery selects sneakers at the store. UserID is required; a nil
// InRotation means "either".
type SneakerQuery struct {
	UserID     string
	InRotation *bool
}

// SneakerRepository persists sneaker records.
type SneakerRepository interface {
	// Create assigns ID and timestamps on s and inserts it.
	Create(ctx context.Context, s *model.Sneaker) error
	GetByID(ctx context.Context, id string) (*model.Sneaker, error)
	// List returns matching rows oldest first.
	List(ctx context.Context, q SneakerQuery) ([]model.Sneaker, error)
	// Update applies the non-nil fields of patch to the row owned by ownerID
	// and returns the stored result. Returns apperror.ErrNotFound when no
	// such row exists for that owner.
	Update(ctx context.Context, id, ownerID string, patch model.SneakerPatch) (*model.Sneaker, error)
	// Delete removes the row owned by ownerID and returns what was removed.
	Delete(ctx context.Context, id, ownerID string) (*model.Sneaker, error)
}

// ProfileRepository reads and creates public profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// ListProfiles returns every profile ordered by username.
	ListProfiles(ctx context.Context) ([]model.Profile, error)
}

// UserRepository stores identity records.
type UserRepository interface {
	// CreateUser inserts u, assigning ID and timestamps. A duplicate email
	// yields apperror.ErrConflict.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub inserts or refreshes the user linked to u.GitHubID and
	// fills u with the stored row. created reports whether a new row was made.
	UpsertGitHub(ctx context.Context, u *model.User) (created bool, err error)
}

// Store is everything a backend provides.
type Store interface {
	SneakerRepository
	ProfileRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}
