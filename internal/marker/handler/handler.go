// Package handler exposes the marker lifecycle, confirmation ledger, and
// proximity query over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	confirmationservice "deicer/internal/confirmation/service"
	"deicer/internal/marker/models"
	markerservice "deicer/internal/marker/service"
	"deicer/internal/proximity"
	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
	"deicer/pkg/platform/httputil"
	"deicer/pkg/requestcontext"
)

// MarkerService defines the marker operations the handler depends on.
type MarkerService interface {
	Create(ctx context.Context, in markerservice.CreateInput) (*models.Marker, error)
	Get(ctx context.Context, markerID id.MarkerID) (*models.Marker, error)
	FetchActive(ctx context.Context, filter markerservice.Filter) ([]*models.Marker, error)
}

// ConfirmationLedger defines the voting operations the handler depends on.
type ConfirmationLedger interface {
	Submit(ctx context.Context, markerID id.MarkerID, deviceID string, present bool) (*models.Confirmation, error)
	History(ctx context.Context, markerID id.MarkerID) ([]*models.Confirmation, error)
}

// ProximityEvaluator defines the nearby query the handler depends on.
type ProximityEvaluator interface {
	Nearby(ctx context.Context, origin geo.Coordinate, radiusMiles float64, categories ...models.Category) ([]proximity.Candidate, error)
}

const defaultNearbyRadiusMiles = 5.0

// Handler wires marker endpoints to the marker, confirmation, and proximity
// services.
type Handler struct {
	markers       MarkerService
	confirmations ConfirmationLedger
	evaluator     ProximityEvaluator
	logger        *slog.Logger
}

// New constructs a marker handler with its dependencies.
func New(markers MarkerService, confirmations ConfirmationLedger, evaluator ProximityEvaluator, logger *slog.Logger) *Handler {
	return &Handler{
		markers:       markers,
		confirmations: confirmations,
		evaluator:     evaluator,
		logger:        logger,
	}
}

// Register mounts marker endpoints on the router. The nearby route is
// registered before the {markerID} route so chi does not try to parse
// "nearby" as an ID.
func (h *Handler) Register(r chi.Router) {
	r.Post("/markers", h.HandleCreate)
	r.Get("/markers", h.HandleList)
	r.Get("/markers/nearby", h.HandleNearby)
	r.Get("/markers/{markerID}", h.HandleGet)
	r.Post("/markers/{markerID}/confirmations", h.HandleConfirm)
	r.Get("/markers/{markerID}/confirmations", h.HandleHistory)
}

// HandleCreate handles POST /markers requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[CreateMarkerRequest](r, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	input, err := req.ToInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	m, err := h.markers.Create(ctx, input)
	if err != nil {
		h.logger.ErrorContext(ctx, "marker creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"category", req.Category,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromMarker(m))
}

// HandleGet handles GET /markers/{markerID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	markerID, err := parseMarkerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	m, err := h.markers.Get(ctx, markerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromMarker(m))
}

// HandleList handles GET /markers requests. Only active markers are
// returned; an optional category query parameter narrows the set.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter markerservice.Filter
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Category = &category
	}

	markers, err := h.markers.FetchActive(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "marker listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromMarkers(markers))
}

// HandleNearby handles GET /markers/nearby requests. Requires lat and lng
// query parameters; radius_miles defaults to five.
func (h *Handler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	lat, err := parseFloatParam(query.Get("lat"), "lat")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lng, err := parseFloatParam(query.Get("lng"), "lng")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	radius := defaultNearbyRadiusMiles
	if raw := query.Get("radius_miles"); raw != "" {
		radius, err = parseFloatParam(raw, "radius_miles")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	var categories []models.Category
	if raw := query.Get("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		categories = append(categories, category)
	}

	candidates, err := h.evaluator.Nearby(ctx, geo.Coordinate{Lat: lat, Lng: lng}, radius, categories...)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := NearbyResponse{Candidates: make([]CandidateResponse, len(candidates)), Count: len(candidates)}
	for i, c := range candidates {
		resp.Candidates[i] = CandidateResponse{
			MarkerID:      c.MarkerID.String(),
			Category:      c.Category.String(),
			DistanceMiles: c.DistanceMiles,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleConfirm handles POST /markers/{markerID}/confirmations requests.
// The device identity comes from the X-Device-ID header via middleware; a
// vote during an active cooldown returns 409 with a Retry-After header.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	markerID, err := parseMarkerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "X-Device-ID header is required"))
		return
	}

	req, err := httputil.Decode[ConfirmationRequest](r, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	entry, err := h.confirmations.Submit(ctx, markerID, deviceID, *req.Present)
	if err != nil {
		var cooldown *confirmationservice.CooldownActiveError
		if errors.As(err, &cooldown) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(cooldown.Remaining)))
		} else {
			h.logger.ErrorContext(ctx, "confirmation submission failed",
				"request_id", requestcontext.RequestID(ctx),
				"marker_id", markerID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromConfirmation(entry))
}

// HandleHistory handles GET /markers/{markerID}/confirmations requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	markerID, err := parseMarkerID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.confirmations.History(ctx, markerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromConfirmations(entries))
}

func parseMarkerID(r *http.Request) (id.MarkerID, error) {
	return id.ParseMarkerID(chi.URLParam(r, "markerID"))
}

func parseFloatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s query parameter is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("%s must be a number", name))
	}
	return v, nil
}

// retryAfterSeconds rounds a cooldown remainder up to whole seconds so
// clients never retry early.
func retryAfterSeconds(remaining time.Duration) int {
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
