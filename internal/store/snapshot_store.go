package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/orgadmin/internal/model"
)

// SnapshotStore handles database operations for staffing snapshots
type SnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore creates a new SnapshotStore
func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// InsertSnapshotIfChanged inserts a snapshot unless one already exists for the
// same unit and date with the same checksum
func (s *SnapshotStore) InsertSnapshotIfChanged(ctx context.Context, snap *model.StaffingSnapshot) (changed bool, err error) {
	var existingChecksum sql.NullString
	checksumQuery := `
		SELECT checksum FROM staffing_snapshots
		WHERE unit_id = $1 AND snapshot_date = $2
	`
	err = s.db.QueryRowContext(ctx, checksumQuery, snap.UnitID, snap.SnapshotDate).Scan(&existingChecksum)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to read snapshot checksum for unit %s: %w", snap.UnitID, err)
	}

	if existingChecksum.Valid && existingChecksum.String == snap.Checksum {
		return false, nil
	}

	query := `
		INSERT INTO staffing_snapshots (unit_id, unit_name, position_count, vacant_count,
		                                slots_total, slots_available, checksum, snapshot_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (unit_id, snapshot_date) DO UPDATE SET
			unit_name = EXCLUDED.unit_name,
			position_count = EXCLUDED.position_count,
			vacant_count = EXCLUDED.vacant_count,
			slots_total = EXCLUDED.slots_total,
			slots_available = EXCLUDED.slots_available,
			checksum = EXCLUDED.checksum
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		snap.UnitID,
		snap.UnitName,
		snap.PositionCount,
		snap.VacantCount,
		snap.SlotsTotal,
		snap.SlotsAvailable,
		snap.Checksum,
		snap.SnapshotDate,
	).Scan(&snap.ID)
	if err != nil {
		return false, fmt.Errorf("failed to insert snapshot for unit %s: %w", snap.UnitID, err)
	}

	return true, nil
}

// GetSnapshotsForUnit retrieves all snapshots for a unit, newest first
func (s *SnapshotStore) GetSnapshotsForUnit(ctx context.Context, unitID string) ([]model.StaffingSnapshot, error) {
	query := `
		SELECT id, unit_id, unit_name, position_count, vacant_count, slots_total,
		       slots_available, checksum, snapshot_date, created_at
		FROM staffing_snapshots
		WHERE unit_id = $1
		ORDER BY snapshot_date DESC
	`

	rows, err := s.db.QueryContext(ctx, query, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots for unit %s: %w", unitID, err)
	}
	defer rows.Close()

	var snapshots []model.StaffingSnapshot
	for rows.Next() {
		var snap model.StaffingSnapshot
		err := rows.Scan(
			&snap.ID,
			&snap.UnitID,
			&snap.UnitName,
			&snap.PositionCount,
			&snap.VacantCount,
			&snap.SlotsTotal,
			&snap.SlotsAvailable,
			&snap.Checksum,
			&snap.SnapshotDate,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staffing snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}
