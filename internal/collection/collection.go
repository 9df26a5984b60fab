// Package collection derives what the views show from a fetched sneaker list.
//
// FETCH-THEN-DERIVE:
// Pages fetch the raw rows once per request and then compute everything else
// here: display fallbacks, the tag set offered for filtering, the visible
// subset and the rotation cards. Every function is pure. Inputs are never
// modified, so the same fetched slice can be filtered any number of ways.
package collection

import (
	"strings"

	"github.com/sakif/sneaker-rotation/internal/model"
)

// Display fallbacks. They are applied at read time only.
const (
	PlaceholderImage = "https://static.nike.com/a/images/t_PDP_864_v1/f_auto,q_auto:eco/6b2e2e2e-2e2e-4e2e-8e2e-2e2e2e2e2e2e/air-jordan-4-retro-white-oreo.png"
	DefaultTag       = "Heater"
	DefaultRating    = 4.0
	UnknownBrand     = "Unknown Brand"
	UnknownTitle     = "Unknown Model"
)

// Display resolves every fallback for a single record.
func Display(s model.Sneaker) model.SneakerView {
	v := model.SneakerView{
		ID:         s.ID,
		UserID:     s.UserID,
		Brand:      s.Brand,
		Title:      s.Title,
		Tag:        s.Tag,
		Rating:     DefaultRating,
		Image:      PlaceholderImage,
		InRotation: s.InRotation,
	}
	if strings.TrimSpace(v.Brand) == "" {
		v.Brand = UnknownBrand
	}
	if strings.TrimSpace(v.Title) == "" {
		v.Title = UnknownTitle
	}
	if strings.TrimSpace(v.Tag) == "" {
		v.Tag = DefaultTag
	}
	if s.Rating != nil {
		v.Rating = *s.Rating
	}
	if s.Image != nil && strings.TrimSpace(*s.Image) != "" {
		v.Image = *s.Image
	}
	v.Name = v.Brand + " " + v.Title
	return v
}

// DisplayAll maps Display over a list. A nil input yields an empty slice so
// JSON encodes [] rather than null.
func DisplayAll(records []model.Sneaker) []model.SneakerView {
	out := make([]model.SneakerView, 0, len(records))
	for _, s := range records {
		out = append(out, Display(s))
	}
	return out
}

// Visible returns the records matching both predicates of f.
//
// The two predicates are independent and combined with AND:
//   - tag equality, skipped when f.Tag is empty
//   - rotation flag, skipped when f.RotationOnly is false
//
// Order is preserved. The result is always a new slice.
func Visible(records []model.SneakerView, f model.Filter) []model.SneakerView {
	out := make([]model.SneakerView, 0, len(records))
	for _, s := range records {
		if f.Tag != "" && s.Tag != f.Tag {
			continue
		}
		if f.RotationOnly && !s.InRotation {
			continue
		}
		out = append(out, s)
	}
	return out
}

// DistinctTags returns the distinct non-empty tags across records, in the
// order they first appear.
func DistinctTags(records []model.Sneaker) []string {
	seen := make(map[string]struct{}, len(records))
	tags := make([]string, 0, len(records))
	for _, s := range records {
		tag := strings.TrimSpace(s.Tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// Derive builds the whole collection page state from fetched rows.
func Derive(records []model.Sneaker, f model.Filter) model.CollectionView {
	visible := Visible(DisplayAll(records), f)
	return model.CollectionView{
		Sneakers: visible,
		Tags:     DistinctTags(records),
		Filter:   f,
		Total:    len(records),
		Empty:    len(visible) == 0,
	}
}
