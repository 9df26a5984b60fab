package collection

import (
	"slices"
	"strings"
)

// DefaultVocabulary seeds the filter bar.
var DefaultVocabulary = []string{"skinny", "chunky", "dressy", "everyday", "heater"}

// TagVocabulary is the filter bar's own list of tags plus the active
// selection. It lives only as long as the value does; nothing is persisted
// and it is not connected to the tags stored on sneakers.
type TagVocabulary struct {
	tags   []string
	active string
}

// NewTagVocabulary returns a vocabulary seeded with DefaultVocabulary.
func NewTagVocabulary() *TagVocabulary {
	return &TagVocabulary{tags: slices.Clone(DefaultVocabulary)}
}

// RestoreTagVocabulary rebuilds a vocabulary from a previously rendered tag
// list. Each tag goes through Add, so blanks and duplicates are dropped.
// An empty list gives the default seed.
func RestoreTagVocabulary(tags []string) *TagVocabulary {
	if len(tags) == 0 {
		return NewTagVocabulary()
	}
	v := &TagVocabulary{}
	for _, t := range tags {
		v.Add(t)
	}
	if len(v.tags) == 0 {
		return NewTagVocabulary()
	}
	return v
}

// Tags returns a copy of the current vocabulary.
func (v *TagVocabulary) Tags() []string {
	return slices.Clone(v.tags)
}

// Active returns the selected tag, or "" for "All".
func (v *TagVocabulary) Active() string {
	return v.active
}

// Select sets the active tag. "" selects "All".
func (v *TagVocabulary) Select(tag string) {
	v.active = tag
}

// Add normalises tag (trimmed, lower-cased) and appends it. Empty and
// duplicate tags are ignored; the return value reports whether it was added.
func (v *TagVocabulary) Add(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || slices.Contains(v.tags, tag) {
		return false
	}
	v.tags = append(v.tags, tag)
	return true
}

// Remove drops tag from the vocabulary. If it was the active tag the
// selection falls back to "All".
func (v *TagVocabulary) Remove(tag string) {
	v.tags = slices.DeleteFunc(v.tags, func(t string) bool { return t == tag })
	if v.active == tag {
		v.active = ""
	}
}
