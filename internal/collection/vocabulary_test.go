package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/sneaker-rotation/internal/model"
)

func TestTagVocabulary_SeededWithDefaults(t *testing.T) {
	v := NewTagVocabulary()
	assert.Equal(t, DefaultVocabulary, v.Tags())
	assert.Equal(t, "", v.Active())
}

func TestTagVocabulary_Add(t *testing.T) {
	v := NewTagVocabulary()

	assert.True(t, v.Add("  Grails "))
	assert.Contains(t, v.Tags(), "grails")

	assert.False(t, v.Add("GRAILS"), "duplicates are ignored after normalising")
	assert.False(t, v.Add("   "), "blank tags are ignored")
	assert.Len(t, v.Tags(), len(DefaultVocabulary)+1)
}

func TestTagVocabulary_RemoveClearsActive(t *testing.T) {
	v := NewTagVocabulary()
	v.Select("chunky")

	v.Remove("chunky")

	assert.NotContains(t, v.Tags(), "chunky")
	assert.Equal(t, "", v.Active())
}

func TestTagVocabulary_RemoveKeepsOtherActive(t *testing.T) {
	v := NewTagVocabulary()
	v.Select("dressy")

	v.Remove("chunky")

	assert.Equal(t, "dressy", v.Active())
}

func TestTagVocabulary_IsolatedFromDefaults(t *testing.T) {
	v := NewTagVocabulary()
	v.Remove("skinny")
	tags := v.Tags()
	tags[0] = "mutated"

	assert.Equal(t, "skinny", DefaultVocabulary[0])
	assert.NotEqual(t, "mutated", v.Tags()[0])
}

func TestRotationSlots(t *testing.T) {
	records := []model.Sneaker{
		{ID: "a", InRotation: true},
		{ID: "b"},
		{ID: "c", InRotation: true},
		{ID: "d", InRotation: true},
		{ID: "e", InRotation: true},
		{ID: "f", InRotation: true},
	}

	slots := RotationSlots(records)

	if assert.Len(t, slots, 5) {
		assert.Equal(t, "a", slots[0].Sneaker.ID)
		assert.Equal(t, "Something skinny", slots[0].Heading)
		assert.Equal(t, "Something chunky", slots[1].Heading)
		assert.Equal(t, "Something for everyday", slots[2].Heading)
		assert.Equal(t, "Something dressy", slots[3].Heading)
		assert.Equal(t, "Something skinny", slots[4].Heading, "headings cycle")
	}
}

func TestRestoreTagVocabulary(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil gives defaults", nil, DefaultVocabulary},
		{"only blanks gives defaults", []string{" ", ""}, DefaultVocabulary},
		{"normalised and deduplicated", []string{"Heater", "heater ", "beaters"}, []string{"heater", "beaters"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := RestoreTagVocabulary(tt.in)
			assert.Equal(t, tt.want, v.Tags())
			assert.Equal(t, "", v.Active())
		})
	}
}
