package models

import (
	dErrors "deicer/pkg/domain-errors"
)

// Category is the closed set of marker kinds. Modeled as a tagged variant
// rather than a free string so invalid categories are rejected once at the
// boundary instead of leaking into stores.
type Category string

const (
	// CategoryIce marks a reported law-enforcement sighting.
	CategoryIce Category = "ice"
	// CategoryObserver marks a community-observer note.
	CategoryObserver Category = "observer"
)

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	return c == CategoryIce || c == CategoryObserver
}

func (c Category) String() string { return string(c) }

// ParseCategory validates a category at a trust boundary.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid category %q", s)
	}
	return c, nil
}
