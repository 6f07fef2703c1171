package handler

import (
	"time"

	"deicer/internal/marker/models"
	markerservice "deicer/internal/marker/service"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
)

// CreateMarkerRequest is the JSON body for POST /markers.
type CreateMarkerRequest struct {
	Category    string  `json:"category"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
	ImageRef    string  `json:"image_ref,omitempty"`
}

// ToInput converts the wire request into a service input, validating the
// category token. Coordinate validation happens in the domain model.
func (r CreateMarkerRequest) ToInput() (markerservice.CreateInput, error) {
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return markerservice.CreateInput{}, err
	}
	return markerservice.CreateInput{
		Category:    category,
		Location:    geo.Coordinate{Lat: r.Lat, Lng: r.Lng},
		Description: r.Description,
		ImageRef:    r.ImageRef,
	}, nil
}

// ConfirmationRequest is the JSON body for POST /markers/{id}/confirmations.
// Present is a pointer so an absent field is rejected rather than silently
// treated as a dispute.
type ConfirmationRequest struct {
	Present *bool `json:"present"`
}

func (r ConfirmationRequest) Validate() error {
	if r.Present == nil {
		return dErrors.New(dErrors.CodeValidation, "present is required")
	}
	return nil
}

// MarkerResponse is the wire shape of a marker.
type MarkerResponse struct {
	ID                    string    `json:"id"`
	Category              string    `json:"category"`
	Lat                   float64   `json:"lat"`
	Lng                   float64   `json:"lng"`
	Description           string    `json:"description,omitempty"`
	ImageRef              string    `json:"image_ref,omitempty"`
	Active                bool      `json:"active"`
	Confirmations         int       `json:"confirmations_count"`
	NegativeConfirmations int       `json:"negative_confirmations"`
	ReliabilityScore      float64   `json:"reliability_score"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	LastConfirmedAt       time.Time `json:"last_confirmed_at,omitempty"`
}

// FromMarker maps a domain marker onto its wire shape.
func FromMarker(m *models.Marker) MarkerResponse {
	return MarkerResponse{
		ID:                    m.ID.String(),
		Category:              m.Category.String(),
		Lat:                   m.Location.Lat,
		Lng:                   m.Location.Lng,
		Description:           m.Description,
		ImageRef:              m.ImageRef,
		Active:                m.Active,
		Confirmations:         m.Confirmations,
		NegativeConfirmations: m.NegativeConfirmations,
		ReliabilityScore:      m.ReliabilityScore,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
		LastConfirmedAt:       m.LastConfirmedAt,
	}
}

// MarkerListResponse wraps a collection of markers.
type MarkerListResponse struct {
	Markers []MarkerResponse `json:"markers"`
	Count   int              `json:"count"`
}

// FromMarkers maps a slice of domain markers onto the list wire shape.
func FromMarkers(markers []*models.Marker) MarkerListResponse {
	out := make([]MarkerResponse, len(markers))
	for i, m := range markers {
		out[i] = FromMarker(m)
	}
	return MarkerListResponse{Markers: out, Count: len(out)}
}

// ConfirmationResponse is the wire shape of a ledger entry.
type ConfirmationResponse struct {
	ID                string    `json:"id"`
	MarkerID          string    `json:"marker_id"`
	Present           bool      `json:"present"`
	ConfirmedAt       time.Time `json:"confirmed_at"`
	CooldownExpiresAt time.Time `json:"cooldown_expires_at"`
}

// FromConfirmation maps a ledger entry onto its wire shape. The device ID
// is deliberately omitted so voters stay anonymous to other clients.
func FromConfirmation(c *models.Confirmation) ConfirmationResponse {
	return ConfirmationResponse{
		ID:                c.ID.String(),
		MarkerID:          c.MarkerID.String(),
		Present:           c.Present,
		ConfirmedAt:       c.ConfirmedAt,
		CooldownExpiresAt: c.CooldownExpiresAt,
	}
}

// ConfirmationListResponse wraps a marker's voting history.
type ConfirmationListResponse struct {
	Confirmations []ConfirmationResponse `json:"confirmations"`
	Count         int                    `json:"count"`
}

func FromConfirmations(entries []*models.Confirmation) ConfirmationListResponse {
	out := make([]ConfirmationResponse, len(entries))
	for i, c := range entries {
		out[i] = FromConfirmation(c)
	}
	return ConfirmationListResponse{Confirmations: out, Count: len(out)}
}

// NearbyResponse wraps a proximity evaluation result.
type NearbyResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
	Count      int                 `json:"count"`
}

// CandidateResponse is one ranked proximity match.
type CandidateResponse struct {
	MarkerID      string  `json:"marker_id"`
	Category      string  `json:"category"`
	DistanceMiles float64 `json:"distance_miles"`
}

// ExpireResponse reports how many markers a sweep deactivated.
type ExpireResponse struct {
	Deactivated int `json:"deactivated"`
}

// ClearResponse reports how many markers a purge removed.
type ClearResponse struct {
	Deleted int `json:"deleted"`
}
