// Package domain defines typed identifiers for core entities. Wrapping
// uuid.UUID in distinct types keeps marker and confirmation IDs from being
// swapped at call sites and lets boundaries validate IDs once on entry.
package domain

import (
	"github.com/google/uuid"

	dErrors "deicer/pkg/domain-errors"
)

// MarkerID identifies a community-reported marker.
type MarkerID uuid.UUID

// ConfirmationID identifies a single confirmation ledger entry.
type ConfirmationID uuid.UUID

// NewMarkerID returns a fresh random marker ID.
func NewMarkerID() MarkerID { return MarkerID(uuid.New()) }

// NewConfirmationID returns a fresh random confirmation ID.
func NewConfirmationID() ConfirmationID { return ConfirmationID(uuid.New()) }

func (id MarkerID) String() string { return uuid.UUID(id).String() }

func (id MarkerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ConfirmationID) String() string { return uuid.UUID(id).String() }

func (id ConfirmationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id MarkerID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *MarkerID) UnmarshalText(text []byte) error {
	parsed, err := ParseMarkerID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ConfirmationID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *ConfirmationID) UnmarshalText(text []byte) error {
	parsed, err := ParseConfirmationID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseMarkerID validates and parses a marker ID from its string form.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseMarkerID(s string) (MarkerID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return MarkerID{}, err
	}
	return MarkerID(u), nil
}

// ParseConfirmationID validates and parses a confirmation ID.
func ParseConfirmationID(s string) (ConfirmationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ConfirmationID{}, err
	}
	return ConfirmationID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}
