package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"deicer/pkg/platform/httputil"
	"deicer/pkg/requestcontext"
)

// AdminMarkerService defines the maintenance operations the admin handler
// depends on.
type AdminMarkerService interface {
	ExpireStale(ctx context.Context, now time.Time, maxAge time.Duration) (int, error)
	ClearAll(ctx context.Context) (int, error)
}

// AdminHandler exposes the stale-sweep and full-purge maintenance
// endpoints. Token gating happens in middleware; these handlers assume the
// caller is already authorized.
type AdminHandler struct {
	markers     AdminMarkerService
	staleMaxAge time.Duration
	logger      *slog.Logger
}

// NewAdmin constructs the admin handler.
func NewAdmin(markers AdminMarkerService, staleMaxAge time.Duration, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		markers:     markers,
		staleMaxAge: staleMaxAge,
		logger:      logger,
	}
}

// Register mounts admin endpoints on the router.
func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/markers/expire", h.HandleExpire)
	r.Delete("/markers", h.HandleClear)
}

// HandleExpire handles POST /admin/markers/expire requests: deactivate
// every active marker whose last confirmation is older than the configured
// maximum age.
func (h *AdminHandler) HandleExpire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.markers.ExpireStale(ctx, requestcontext.Now(ctx), h.staleMaxAge)
	if err != nil {
		h.logger.ErrorContext(ctx, "stale sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "stale sweep completed", "deactivated", count)
	httputil.WriteJSON(w, http.StatusOK, ExpireResponse{Deactivated: count})
}

// HandleClear handles DELETE /admin/markers requests: physically remove
// every marker and its confirmation history.
func (h *AdminHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.markers.ClearAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "marker purge failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "all markers purged", "deleted", count)
	httputil.WriteJSON(w, http.StatusOK, ClearResponse{Deleted: count})
}
