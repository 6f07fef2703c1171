// Package service implements the marker lifecycle: creation, active-set
// queries, reliability recomputes on confirmation, staleness expiry, and
// administrative clearing. It is the single writer of marker state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	markermetrics "deicer/internal/marker/metrics"
	"deicer/internal/marker/models"
	markerstore "deicer/internal/marker/store/marker"
	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
	"deicer/pkg/platform/sentinel"
	"deicer/pkg/requestcontext"
)

// Store is the persistence port the service drives.
type Store = markerstore.Store

// Filter re-exports the store filter for callers of FetchActive.
type Filter = markerstore.Filter

// ConfirmationPurger removes confirmation records during an administrative
// clear. Postgres deployments get this for free via FK cascade; the memory
// wiring injects the ledger store here so both deployments agree.
type ConfirmationPurger interface {
	DeleteAll(ctx context.Context) (int, error)
}

// Service orchestrates marker lifecycle operations.
type Service struct {
	store   Store
	scoring models.ScoringConfig
	logger  *slog.Logger
	metrics *markermetrics.Metrics
	purger  ConfirmationPurger
}

// Option configures optional service dependencies.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *markermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithScoringConfig(cfg models.ScoringConfig) Option {
	return func(s *Service) { s.scoring = cfg }
}

func WithConfirmationPurger(p ConfirmationPurger) Option {
	return func(s *Service) { s.purger = p }
}

// New constructs the marker service. A store is required.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("marker store is required")
	}
	svc := &Service{
		store:   store,
		scoring: models.DefaultScoringConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ScoringConfig exposes the active scoring constants, mainly for tests and
// the status endpoint.
func (s *Service) ScoringConfig() models.ScoringConfig { return s.scoring }

// CreateInput carries the caller-supplied fields for a new marker.
type CreateInput struct {
	Category    models.Category
	Location    geo.Coordinate
	Description string
	ImageRef    string
}

// Create validates input, assigns identity and timestamps, and persists a
// new active marker at the baseline reliability score.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Marker, error) {
	now := requestcontext.Now(ctx)

	m, err := models.NewMarker(id.NewMarkerID(), in.Category, in.Location, in.Description, in.ImageRef, s.scoring, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, m); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create marker")
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated(m.Category.String())
	}
	s.logger.InfoContext(ctx, "marker created",
		"marker_id", m.ID,
		"category", m.Category,
	)
	return m, nil
}

// Get returns a single marker by ID, active or not.
func (s *Service) Get(ctx context.Context, markerID id.MarkerID) (*models.Marker, error) {
	if markerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "marker id is required")
	}
	m, err := s.store.FindByID(ctx, markerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "marker not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load marker")
	}
	return m, nil
}

// FetchActive returns active markers newest-first, optionally filtered by
// category and bounding region.
func (s *Service) FetchActive(ctx context.Context, filter Filter) ([]*models.Marker, error) {
	markers, err := s.store.ListActive(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list markers")
	}
	return markers, nil
}

// RecordConfirmation applies one confirmation outcome to an active marker
// and recomputes its reliability. Called only by the confirmation ledger;
// that routing is what keeps marker state single-writer.
//
// The read-modify-write is guarded by the store's version check. A lost race
// is retried once with a fresh read before surfacing a conflict, so
// concurrent confirmations from different devices both land.
func (s *Service) RecordConfirmation(ctx context.Context, markerID id.MarkerID, present bool, now time.Time) (*models.Marker, error) {
	const attempts = 2

	for attempt := 0; attempt < attempts; attempt++ {
		m, err := s.store.FindByID(ctx, markerID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "marker not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load marker")
		}
		if err := m.CanConfirm(); err != nil {
			// An already-deactivated marker reads as gone to confirmers;
			// their view is stale and a refresh is the fix.
			return nil, dErrors.New(dErrors.CodeNotFound, "marker not found")
		}

		wasActive := m.Active
		m.ApplyConfirmation(present, now, s.scoring)

		if err := s.store.Update(ctx, m); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				s.logger.DebugContext(ctx, "confirmation lost update race, retrying",
					"marker_id", markerID, "attempt", attempt+1)
				continue
			}
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "marker not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update marker")
		}

		if s.metrics != nil {
			s.metrics.IncrementConfirmation(present)
			if wasActive && !m.Active {
				s.metrics.IncrementDeactivated("score")
			}
		}
		if wasActive && !m.Active {
			s.logger.InfoContext(ctx, "marker deactivated by reliability",
				"marker_id", m.ID,
				"score", m.ReliabilityScore,
				"negatives", m.NegativeConfirmations,
			)
		}
		return m, nil
	}

	return nil, dErrors.New(dErrors.CodeConflict, "marker is being updated concurrently, retry")
}

// ExpireStale deactivates markers unconfirmed for longer than maxAge.
// Idempotent: a repeat sweep with the same now deactivates nothing further.
func (s *Service) ExpireStale(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "max age must be positive")
	}
	start := time.Now()
	count, err := s.store.DeactivateStale(ctx, now.Add(-maxAge), now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire stale markers")
	}
	if s.metrics != nil {
		s.metrics.ObserveSweep(start)
		for i := 0; i < count; i++ {
			s.metrics.IncrementDeactivated("stale")
		}
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "stale markers expired", "count", count, "max_age", maxAge)
	}
	return count, nil
}

// ClearAll physically removes every marker and its confirmations.
// Irreversible; administrative use only.
func (s *Service) ClearAll(ctx context.Context) (int, error) {
	if s.purger != nil {
		if _, err := s.purger.DeleteAll(ctx); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear confirmations")
		}
	}
	count, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear markers")
	}
	s.logger.WarnContext(ctx, "all markers cleared", "count", count)
	return count, nil
}
