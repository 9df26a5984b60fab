package repository

import "github.com/sakif/sneaker-rotation/internal/model"

// PatchColumns flattens a SneakerPatch into parallel column and value
// slices in a fixed order, ready for a dialect to render placeholders.
// An Image of "" becomes a NULL value so the stored image is cleared.
func PatchColumns(p model.SneakerPatch) (cols []string, vals []any) {
	if p.Brand != nil {
		cols, vals = append(cols, "brand"), append(vals, *p.Brand)
	}
	if p.Title != nil {
		cols, vals = append(cols, "title"), append(vals, *p.Title)
	}
	if p.Tag != nil {
		cols, vals = append(cols, "tag"), append(vals, *p.Tag)
	}
	if p.Rating != nil {
		cols, vals = append(cols, "rating"), append(vals, *p.Rating)
	}
	if p.Image != nil {
		if *p.Image == "" {
			cols, vals = append(cols, "image"), append(vals, nil)
		} else {
			cols, vals = append(cols, "image"), append(vals, *p.Image)
		}
	}
	if p.InRotation != nil {
		cols, vals = append(cols, "in_rotation"), append(vals, *p.InRotation)
	}
	return cols, vals
}
