package marker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"deicer/internal/marker/models"
	id "deicer/pkg/domain"
	"deicer/pkg/platform/sentinel"
)

// PostgresStore persists markers in PostgreSQL. Conditional updates keyed on
// the version column keep reliability recomputes correct under concurrent
// confirmations from different devices.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed marker store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL for the marker tables. Applied at startup; the
// confirmations table lives here too so its FK cascade rides along.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS markers (
    id                    UUID PRIMARY KEY,
    category              TEXT             NOT NULL,
    latitude              DOUBLE PRECISION NOT NULL,
    longitude             DOUBLE PRECISION NOT NULL,
    description           TEXT             NOT NULL DEFAULT '',
    image_ref             TEXT             NOT NULL DEFAULT '',
    active                BOOLEAN          NOT NULL DEFAULT TRUE,
    confirmations         INTEGER          NOT NULL DEFAULT 0,
    negative_confirmations INTEGER         NOT NULL DEFAULT 0,
    reliability_score     DOUBLE PRECISION NOT NULL,
    version               BIGINT           NOT NULL DEFAULT 1,
    created_at            TIMESTAMPTZ      NOT NULL,
    updated_at            TIMESTAMPTZ      NOT NULL,
    last_confirmed_at     TIMESTAMPTZ,
    last_status_change_at TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_markers_active_created ON markers (active, created_at DESC);

CREATE TABLE IF NOT EXISTS confirmations (
    id                  UUID PRIMARY KEY,
    marker_id           UUID        NOT NULL REFERENCES markers (id) ON DELETE CASCADE,
    device_id           TEXT        NOT NULL,
    present             BOOLEAN     NOT NULL,
    confirmed_at        TIMESTAMPTZ NOT NULL,
    cooldown_expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_confirmations_marker_device ON confirmations (marker_id, device_id, confirmed_at DESC);
`
}

const markerColumns = `id, category, latitude, longitude, description, image_ref, active,
	confirmations, negative_confirmations, reliability_score, version,
	created_at, updated_at, last_confirmed_at, last_status_change_at`

func (s *PostgresStore) Create(ctx context.Context, m *models.Marker) error {
	query := `
		INSERT INTO markers (` + markerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(m.ID),
		m.Category.String(),
		m.Location.Lat,
		m.Location.Lng,
		m.Description,
		m.ImageRef,
		m.Active,
		m.Confirmations,
		m.NegativeConfirmations,
		m.ReliabilityScore,
		m.CreatedAt,
		m.UpdatedAt,
		nullableTime(m.LastConfirmedAt),
		m.LastStatusChangeAt,
	)
	if err != nil {
		return fmt.Errorf("create marker: %w", err)
	}
	m.Version = 1
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, markerID id.MarkerID) (*models.Marker, error) {
	query := `SELECT ` + markerColumns + ` FROM markers WHERE id = $1`
	m, err := scanMarker(s.db.QueryRowContext(ctx, query, uuid.UUID(markerID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("find marker %s: %w", markerID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find marker: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListActive(ctx context.Context, filter Filter) ([]*models.Marker, error) {
	query := `SELECT ` + markerColumns + ` FROM markers WHERE active = TRUE`
	args := []any{}

	if filter.Category != nil {
		args = append(args, filter.Category.String())
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Box != nil {
		args = append(args, filter.Box.MinLat, filter.Box.MaxLat, filter.Box.MinLng, filter.Box.MaxLng)
		query += fmt.Sprintf(" AND latitude BETWEEN $%d AND $%d AND longitude BETWEEN $%d AND $%d",
			len(args)-3, len(args)-2, len(args)-1, len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active markers: %w", err)
	}
	defer rows.Close()

	var result []*models.Marker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan marker row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marker rows: %w", err)
	}
	return result, nil
}

// Update writes the marker back only if the stored version still matches.
// Zero rows affected means a concurrent writer won; the caller re-fetches
// and recomputes.
func (s *PostgresStore) Update(ctx context.Context, m *models.Marker) error {
	query := `
		UPDATE markers SET
			description = $1,
			image_ref = $2,
			active = $3,
			confirmations = $4,
			negative_confirmations = $5,
			reliability_score = $6,
			updated_at = $7,
			last_confirmed_at = $8,
			last_status_change_at = $9,
			version = version + 1
		WHERE id = $10 AND version = $11
	`
	res, err := s.db.ExecContext(ctx, query,
		m.Description,
		m.ImageRef,
		m.Active,
		m.Confirmations,
		m.NegativeConfirmations,
		m.ReliabilityScore,
		m.UpdatedAt,
		nullableTime(m.LastConfirmedAt),
		m.LastStatusChangeAt,
		uuid.UUID(m.ID),
		m.Version,
	)
	if err != nil {
		return fmt.Errorf("update marker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update marker rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a lost race from a missing row.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM markers WHERE id = $1)`, uuid.UUID(m.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("update marker existence check: %w", err)
		}
		if !exists {
			return fmt.Errorf("update marker %s: %w", m.ID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("update marker %s: version %d moved: %w", m.ID, m.Version, sentinel.ErrConflict)
	}
	m.Version++
	return nil
}

func (s *PostgresStore) DeactivateStale(ctx context.Context, cutoff, now time.Time) (int, error) {
	query := `
		UPDATE markers SET
			active = FALSE,
			updated_at = $1,
			last_status_change_at = $1,
			version = version + 1
		WHERE active = TRUE AND COALESCE(last_confirmed_at, created_at) < $2
	`
	res, err := s.db.ExecContext(ctx, query, now, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale markers: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate stale rows affected: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM markers`)
	if err != nil {
		return 0, fmt.Errorf("delete all markers: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all rows affected: %w", err)
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarker(row rowScanner) (*models.Marker, error) {
	var (
		m           models.Marker
		markerUUID  uuid.UUID
		category    string
		lastConfirm sql.NullTime
	)
	err := row.Scan(
		&markerUUID,
		&category,
		&m.Location.Lat,
		&m.Location.Lng,
		&m.Description,
		&m.ImageRef,
		&m.Active,
		&m.Confirmations,
		&m.NegativeConfirmations,
		&m.ReliabilityScore,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
		&lastConfirm,
		&m.LastStatusChangeAt,
	)
	if err != nil {
		return nil, err
	}
	m.ID = id.MarkerID(markerUUID)
	m.Category = models.Category(category)
	if lastConfirm.Valid {
		m.LastConfirmedAt = lastConfirm.Time
	}
	return &m, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
