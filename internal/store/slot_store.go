package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/lib/pq"
)

// SlotStore handles database operations for recruitment slots
type SlotStore struct {
	db *sql.DB
}

// NewSlotStore creates a new SlotStore
func NewSlotStore(db *sql.DB) *SlotStore {
	return &SlotStore{db: db}
}

// UpsertSlot inserts or updates a recruitment slot
func (s *SlotStore) UpsertSlot(ctx context.Context, slot *model.RecruitmentSlot) error {
	query := `
		INSERT INTO recruitment_slots (id, unit_id, role_id, role_name, career_track,
		                               total_slots, filled_slots, reserved_slots, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			unit_id = EXCLUDED.unit_id,
			role_id = EXCLUDED.role_id,
			role_name = EXCLUDED.role_name,
			career_track = EXCLUDED.career_track,
			total_slots = EXCLUDED.total_slots,
			filled_slots = EXCLUDED.filled_slots,
			reserved_slots = EXCLUDED.reserved_slots,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	var roleID sql.NullString
	var roleName string
	if slot.Role != nil {
		roleID = nullString(slot.Role.ID)
		roleName = slot.Role.Name
	}

	_, err := s.db.ExecContext(ctx, query,
		slot.ID,
		slot.UnitID,
		roleID,
		roleName,
		slot.CareerTrack,
		slot.TotalSlots,
		slot.FilledSlots,
		slot.ReservedSlots,
		slot.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recruitment slot %s: %w", slot.ID, err)
	}

	return nil
}

// GetAll retrieves all recruitment slots
func (s *SlotStore) GetAll(ctx context.Context) ([]model.RecruitmentSlot, error) {
	query := `
		SELECT id, unit_id, role_id, role_name, career_track,
		       total_slots, filled_slots, reserved_slots, is_active
		FROM recruitment_slots
		ORDER BY unit_id, role_name, career_track
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get recruitment slots: %w", err)
	}
	defer rows.Close()

	var slots []model.RecruitmentSlot
	for rows.Next() {
		var (
			slot     model.RecruitmentSlot
			roleID   sql.NullString
			roleName string
		)
		err := rows.Scan(
			&slot.ID,
			&slot.UnitID,
			&roleID,
			&roleName,
			&slot.CareerTrack,
			&slot.TotalSlots,
			&slot.FilledSlots,
			&slot.ReservedSlots,
			&slot.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recruitment slot: %w", err)
		}
		if roleID.Valid {
			slot.Role = &model.RoleRef{ID: roleID.String, Name: roleName}
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// DeleteMissing removes slots whose ID is not in keep
func (s *SlotStore) DeleteMissing(ctx context.Context, keep []string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recruitment_slots WHERE NOT (id = ANY($1))`, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("failed to prune recruitment slots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
