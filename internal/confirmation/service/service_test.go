package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks MarkerRecorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"deicer/internal/confirmation/cooldown"
	"deicer/internal/confirmation/service/mocks"
	confirmationstore "deicer/internal/confirmation/store/confirmation"
	"deicer/internal/marker/models"
	markerservice "deicer/internal/marker/service"
	markerstore "deicer/internal/marker/store/marker"
	id "deicer/pkg/domain"
	dErrors "deicer/pkg/domain-errors"
	"deicer/pkg/geo"
	"deicer/pkg/requestcontext"
)

type LedgerSuite struct {
	suite.Suite
	markers *markerservice.Service
	store   *confirmationstore.InMemory
	ledger  *Ledger
	now     time.Time
}

func (s *LedgerSuite) SetupTest() {
	var err error
	s.markers, err = markerservice.New(markerstore.NewInMemory())
	s.Require().NoError(err)
	s.store = confirmationstore.NewInMemory()
	s.ledger, err = New(s.store, s.markers, 4*time.Hour, WithGate(cooldown.NewInMemoryGate()))
	s.Require().NoError(err)
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) ctxAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *LedgerSuite) newMarker() *models.Marker {
	m, err := s.markers.Create(s.ctxAt(s.now), markerservice.CreateInput{
		Category: models.CategoryIce,
		Location: geo.Coordinate{Lat: 40.0, Lng: -75.0},
	})
	s.Require().NoError(err)
	return m
}

func (s *LedgerSuite) TestSubmit() {
	s.Run("first vote is accepted and moves the marker", func() {
		m := s.newMarker()

		c, err := s.ledger.Submit(s.ctxAt(s.now), m.ID, "device-1", true)
		s.Require().NoError(err)
		s.Equal(m.ID, c.MarkerID)
		s.True(c.Present)
		s.Equal(s.now.Add(4*time.Hour), c.CooldownExpiresAt)

		updated, err := s.markers.Get(s.ctxAt(s.now), m.ID)
		s.Require().NoError(err)
		s.Equal(1, updated.Confirmations)
		s.Greater(updated.ReliabilityScore, s.markers.ScoringConfig().Baseline)
	})

	s.Run("rejects missing device id", func() {
		m := s.newMarker()
		_, err := s.ledger.Submit(s.ctxAt(s.now), m.ID, "", true)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown marker propagates not found", func() {
		_, err := s.ledger.Submit(s.ctxAt(s.now), id.NewMarkerID(), "device-1", true)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LedgerSuite) TestSubmit_CooldownExclusion() {
	m := s.newMarker()

	_, err := s.ledger.Submit(s.ctxAt(s.now), m.ID, "device-1", true)
	s.Require().NoError(err)

	s.Run("second vote inside the window is rejected", func() {
		_, err := s.ledger.Submit(s.ctxAt(s.now.Add(time.Hour)), m.ID, "device-1", false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		var cooldownErr *CooldownActiveError
		s.Require().True(errors.As(err, &cooldownErr))
		s.Equal(3*time.Hour, cooldownErr.Remaining)
	})

	s.Run("other devices are not gated", func() {
		_, err := s.ledger.Submit(s.ctxAt(s.now.Add(time.Hour)), m.ID, "device-2", true)
		s.Require().NoError(err)
	})

	s.Run("vote after the window is accepted", func() {
		_, err := s.ledger.Submit(s.ctxAt(s.now.Add(4*time.Hour+time.Second)), m.ID, "device-1", true)
		s.Require().NoError(err)
	})
}

func (s *LedgerSuite) TestSubmit_CooldownEnforcedWithoutGate() {
	// The ledger's own latest-entry lookup is the authority; a gateless
	// ledger (or one whose gate lost state) still enforces the window.
	ledger, err := New(s.store, s.markers, 4*time.Hour)
	s.Require().NoError(err)

	m := s.newMarker()
	_, err = ledger.Submit(s.ctxAt(s.now), m.ID, "device-1", true)
	s.Require().NoError(err)

	_, err = ledger.Submit(s.ctxAt(s.now.Add(time.Hour)), m.ID, "device-1", true)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *LedgerSuite) TestSubmit_FailedSubmissionDoesNotBurnWindow() {
	// A vote on a vanished marker must not open a cooldown window.
	ghost := id.NewMarkerID()
	_, err := s.ledger.Submit(s.ctxAt(s.now), ghost, "device-1", true)
	s.Require().Error(err)

	m := s.newMarker()
	_, err = s.ledger.Submit(s.ctxAt(s.now.Add(time.Minute)), m.ID, "device-1", true)
	s.Require().NoError(err, "device must still be able to vote on a real marker")
}

func (s *LedgerSuite) TestSubmit_DeactivationByDisputes() {
	m := s.newMarker()

	for i := 1; i <= 3; i++ {
		device := "device-" + string(rune('a'+i))
		_, err := s.ledger.Submit(s.ctxAt(s.now.Add(time.Duration(i)*time.Minute)), m.ID, device, false)
		s.Require().NoError(err)
	}

	got, err := s.markers.Get(s.ctxAt(s.now), m.ID)
	s.Require().NoError(err)
	s.False(got.Active, "three distinct disputers must deactivate the marker")
}

func (s *LedgerSuite) TestSubmit_RecorderFailureLeavesNoTrace() {
	ctrl := gomock.NewController(s.T())
	recorder := mocks.NewMockMarkerRecorder(ctrl)
	ledger, err := New(s.store, recorder, 4*time.Hour, WithGate(cooldown.NewInMemoryGate()))
	s.Require().NoError(err)

	markerID := id.NewMarkerID()
	recorder.EXPECT().
		RecordConfirmation(gomock.Any(), markerID, true, s.now).
		Return(nil, dErrors.New(dErrors.CodeInternal, "marker store unavailable"))

	_, err = ledger.Submit(s.ctxAt(s.now), markerID, "device-1", true)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	entries, err := s.store.ListByMarker(context.Background(), markerID)
	s.Require().NoError(err)
	s.Empty(entries, "a failed recompute must not leave a ledger entry")

	// The device's window must not be burned either: a retry reaches the
	// recorder again instead of bouncing off the cooldown.
	recorder.EXPECT().
		RecordConfirmation(gomock.Any(), markerID, true, s.now.Add(time.Minute)).
		Return(&models.Marker{}, nil)
	_, err = ledger.Submit(s.ctxAt(s.now.Add(time.Minute)), markerID, "device-1", true)
	s.Require().NoError(err)
}

func (s *LedgerSuite) TestSubmit_RecorderCalledOncePerAcceptedVote() {
	ctrl := gomock.NewController(s.T())
	recorder := mocks.NewMockMarkerRecorder(ctrl)
	ledger, err := New(s.store, recorder, 4*time.Hour, WithGate(cooldown.NewInMemoryGate()))
	s.Require().NoError(err)

	markerID := id.NewMarkerID()
	recorder.EXPECT().
		RecordConfirmation(gomock.Any(), markerID, false, s.now).
		Return(&models.Marker{}, nil).
		Times(1)

	_, err = ledger.Submit(s.ctxAt(s.now), markerID, "device-1", false)
	s.Require().NoError(err)

	// The gated retry is rejected before the recorder is consulted.
	_, err = ledger.Submit(s.ctxAt(s.now.Add(time.Hour)), markerID, "device-1", false)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *LedgerSuite) TestHistory() {
	m := s.newMarker()

	_, err := s.ledger.Submit(s.ctxAt(s.now), m.ID, "device-1", true)
	s.Require().NoError(err)
	_, err = s.ledger.Submit(s.ctxAt(s.now.Add(time.Minute)), m.ID, "device-2", false)
	s.Require().NoError(err)

	entries, err := s.ledger.History(s.ctxAt(s.now), m.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("device-2", entries[0].DeviceID, "newest first")
	s.False(entries[0].Present)
}
