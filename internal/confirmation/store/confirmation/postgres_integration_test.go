//go:build integration

package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"deicer/internal/marker/models"
	markerstore "deicer/internal/marker/store/marker"
	id "deicer/pkg/domain"
	"deicer/pkg/geo"
	"deicer/pkg/platform/sentinel"
	"deicer/pkg/testutil/containers"
)

type PostgresLedgerStoreSuite struct {
	suite.Suite
	pg      *containers.PostgresContainer
	store   *PostgresStore
	markers *markerstore.PostgresStore
	ctx     context.Context
}

func TestPostgresLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerStoreSuite))
}

func (s *PostgresLedgerStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.Exec(s.T(), markerstore.Schema())
	s.store = NewPostgres(s.pg.DB)
	s.markers = markerstore.NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresLedgerStoreSuite) SetupTest() {
	s.pg.Exec(s.T(), "TRUNCATE markers CASCADE")
}

// createMarker persists a parent marker so ledger inserts satisfy the FK.
func (s *PostgresLedgerStoreSuite) createMarker(now time.Time) id.MarkerID {
	m, err := models.NewMarker(id.NewMarkerID(), models.CategoryIce, geo.Coordinate{Lat: 40.7, Lng: -74.0}, "", "", models.DefaultScoringConfig(), now)
	s.Require().NoError(err)
	s.Require().NoError(s.markers.Create(s.ctx, m))
	return m.ID
}

func (s *PostgresLedgerStoreSuite) newEntry(markerID id.MarkerID, deviceID string, present bool, at time.Time) *models.Confirmation {
	c, err := models.NewConfirmation(id.NewConfirmationID(), markerID, deviceID, present, at, 4*time.Hour)
	s.Require().NoError(err)
	return c
}

func (s *PostgresLedgerStoreSuite) TestAppendAndFindLatest() {
	now := time.Now().UTC()
	markerID := s.createMarker(now)

	first := s.newEntry(markerID, "device-1", true, now.Add(-2*time.Hour))
	second := s.newEntry(markerID, "device-1", false, now)
	s.Require().NoError(s.store.Append(s.ctx, first))
	s.Require().NoError(s.store.Append(s.ctx, second))

	latest, err := s.store.FindLatest(s.ctx, markerID, "device-1")
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)
	s.False(latest.Present)
}

func (s *PostgresLedgerStoreSuite) TestFindLatestScopedToPair() {
	now := time.Now().UTC()
	markerID := s.createMarker(now)
	otherMarker := s.createMarker(now)

	s.Require().NoError(s.store.Append(s.ctx, s.newEntry(markerID, "device-1", true, now)))

	_, err := s.store.FindLatest(s.ctx, markerID, "device-2")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindLatest(s.ctx, otherMarker, "device-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerStoreSuite) TestListByMarkerNewestFirst() {
	now := time.Now().UTC()
	markerID := s.createMarker(now)

	for i := 0; i < 3; i++ {
		entry := s.newEntry(markerID, "device-1", true, now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.store.Append(s.ctx, entry))
	}

	entries, err := s.store.ListByMarker(s.ctx, markerID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.True(entries[0].ConfirmedAt.After(entries[1].ConfirmedAt))
	s.True(entries[1].ConfirmedAt.After(entries[2].ConfirmedAt))
}

func (s *PostgresLedgerStoreSuite) TestDeleteAll() {
	now := time.Now().UTC()
	markerID := s.createMarker(now)
	s.Require().NoError(s.store.Append(s.ctx, s.newEntry(markerID, "device-1", true, now)))
	s.Require().NoError(s.store.Append(s.ctx, s.newEntry(markerID, "device-2", true, now)))

	count, err := s.store.DeleteAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)

	entries, err := s.store.ListByMarker(s.ctx, markerID)
	s.Require().NoError(err)
	s.Empty(entries)
}
