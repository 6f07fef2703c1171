package confirmation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"deicer/internal/marker/models"
	id "deicer/pkg/domain"
	"deicer/pkg/platform/sentinel"
)

// PostgresStore persists confirmation entries in PostgreSQL. The table is
// created by the marker store's schema so the ON DELETE CASCADE from
// markers carries the ownership invariant.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed confirmation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const confirmationColumns = `id, marker_id, device_id, present, confirmed_at, cooldown_expires_at`

func (s *PostgresStore) Append(ctx context.Context, c *models.Confirmation) error {
	query := `
		INSERT INTO confirmations (` + confirmationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.MarkerID),
		c.DeviceID,
		c.Present,
		c.ConfirmedAt,
		c.CooldownExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("append confirmation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindLatest(ctx context.Context, markerID id.MarkerID, deviceID string) (*models.Confirmation, error) {
	query := `
		SELECT ` + confirmationColumns + `
		FROM confirmations
		WHERE marker_id = $1 AND device_id = $2
		ORDER BY confirmed_at DESC
		LIMIT 1
	`
	c, err := scanConfirmation(s.db.QueryRowContext(ctx, query, uuid.UUID(markerID), deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("find latest confirmation for marker %s: %w", markerID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find latest confirmation: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListByMarker(ctx context.Context, markerID id.MarkerID) ([]*models.Confirmation, error) {
	query := `
		SELECT ` + confirmationColumns + `
		FROM confirmations
		WHERE marker_id = $1
		ORDER BY confirmed_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(markerID))
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()

	var result []*models.Confirmation
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan confirmation row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmation rows: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM confirmations`)
	if err != nil {
		return 0, fmt.Errorf("delete all confirmations: %w", err)
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

func scanConfirmation(row rowScanner) (*models.Confirmation, error) {
	var (
		c          models.Confirmation
		confirmID  uuid.UUID
		markerUUID uuid.UUID
	)
	err := row.Scan(
		&confirmID,
		&markerUUID,
		&c.DeviceID,
		&c.Present,
		&c.ConfirmedAt,
		&c.CooldownExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.ConfirmationID(confirmID)
	c.MarkerID = id.MarkerID(markerUUID)
	return &c, nil
}
