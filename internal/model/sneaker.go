// Package model defines the data structures used throughout the application.
package model

import (
	"io"
	"time"
)

// Sneaker is one owned pair. Column names follow the sneakers table:
// sneakers {id, user_id, brand, title, tag, rating, image, in_rotation}.
//
// Rating and Image are nullable in the store, so they are pointers here.
// Placeholders for missing values are applied at display time only (see
// package collection) and never written back.
type Sneaker struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Brand      string    `json:"brand"`
	Title      string    `json:"title"`
	Tag        string    `json:"tag"`
	Rating     *float64  `json:"rating"`
	Image      *string   `json:"image"`
	InRotation bool      `json:"in_rotation"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSneaker is the attribute set accepted by create. The owner is never
// taken from the request body; the service fills it from the session.
type NewSneaker struct {
	Brand      string   `json:"brand"       validate:"required,max=100"`
	Title      string   `json:"title"       validate:"required,max=200"`
	Tag        string   `json:"tag"         validate:"required,max=50"`
	Rating     *float64 `json:"rating"      validate:"omitempty,gte=0,lte=5"`
	Image      *string  `json:"image"       validate:"omitempty,max=2048"`
	InRotation bool     `json:"in_rotation"`
}

// SneakerPatch carries a partial update. A nil field means "leave untouched".
// An Image pointing at "" clears the stored image.
type SneakerPatch struct {
	Brand      *string  `json:"brand"       validate:"omitempty,min=1,max=100"`
	Title      *string  `json:"title"       validate:"omitempty,min=1,max=200"`
	Tag        *string  `json:"tag"         validate:"omitempty,min=1,max=50"`
	Rating     *float64 `json:"rating"      validate:"omitempty,gte=0,lte=5"`
	Image      *string  `json:"image"       validate:"omitempty,max=2048"`
	InRotation *bool    `json:"in_rotation"`
}

// IsEmpty reports whether the patch would change nothing.
func (p SneakerPatch) IsEmpty() bool {
	return p.Brand == nil && p.Title == nil && p.Tag == nil &&
		p.Rating == nil && p.Image == nil && p.InRotation == nil
}

// SneakerView is a Sneaker with every display fallback resolved.
type SneakerView struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Brand      string  `json:"brand"`
	Title      string  `json:"title"`
	Name       string  `json:"name"` // brand + " " + title
	Tag        string  `json:"tag"`
	Rating     float64 `json:"rating"`
	Image      string  `json:"image"`
	InRotation bool    `json:"in_rotation"`
}

// Filter is the pair of list predicates offered by the collection page.
// A zero Filter shows everything.
type Filter struct {
	Tag          string `json:"tag,omitempty"`
	RotationOnly bool   `json:"rotation_only"`
}

// CollectionView is the derived state behind the "my sneakers" page.
type CollectionView struct {
	Sneakers []SneakerView `json:"sneakers"`
	Tags     []string      `json:"tags"`
	Filter   Filter        `json:"filter"`
	Total    int           `json:"total"` // before filtering
	Empty    bool          `json:"empty"` // after filtering
}

// RotationSlot is one card on the rotation page.
type RotationSlot struct {
	Heading string      `json:"heading"`
	Sneaker SneakerView `json:"sneaker"`
}

// ImageUpload is a file submitted with an add/edit form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
