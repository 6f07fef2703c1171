package models

import (
	"time"

	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
)

// Confirmation is one append-only ledger entry: a device's vote that a
// marker is still present (or not). Entries are never edited or withdrawn;
// they are removed only when their marker is physically deleted.
type Confirmation struct {
	ID                id.ConfirmationID `json:"id"`
	MarkerID          id.MarkerID       `json:"marker_id"`
	DeviceID          string            `json:"device_id"`
	Present           bool              `json:"present"`
	ConfirmedAt       time.Time         `json:"confirmed_at"`
	CooldownExpiresAt time.Time         `json:"cooldown_expires_at"`
}

// NewConfirmation constructs a ledger entry with its cooldown horizon.
func NewConfirmation(confirmationID id.ConfirmationID, markerID id.MarkerID, deviceID string, present bool, now time.Time, cooldown time.Duration) (*Confirmation, error) {
	if markerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "marker id is required")
	}
	if deviceID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "device id is required")
	}
	return &Confirmation{
		ID:                confirmationID,
		MarkerID:          markerID,
		DeviceID:          deviceID,
		Present:           present,
		ConfirmedAt:       now,
		CooldownExpiresAt: now.Add(cooldown),
	}, nil
}
