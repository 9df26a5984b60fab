package collection

import "github.com/sakif/sneaker-rotation/internal/model"

// RotationHeadings label the cards on the rotation page, cycling when there
// are more pairs than headings.
var RotationHeadings = []string{
	"Something skinny",
	"Something chunky",
	"Something for everyday",
	"Something dressy",
}

// RotationSlots pairs every in-rotation record with a heading. Records not
// in rotation are skipped.
func RotationSlots(records []model.Sneaker) []model.RotationSlot {
	slots := make([]model.RotationSlot, 0, len(records))
	for _, s := range records {
		if !s.InRotation {
			continue
		}
		slots = append(slots, model.RotationSlot{
			Heading: RotationHeadings[len(slots)%len(RotationHeadings)],
			Sneaker: Display(s),
		})
	}
	return slots
}
