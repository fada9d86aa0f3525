package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/lib/pq"
)

// UnitStore handles database operations for units
type UnitStore struct {
	db *sql.DB
}

// NewUnitStore creates a new UnitStore
func NewUnitStore(db *sql.DB) *UnitStore {
	return &UnitStore{db: db}
}

const unitColumns = `
	id, parent_id, name, abbreviation, branch_id, branch_name, branch_abbreviation,
	unit_type, motto, location, established, is_active, commander_id, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (model.UnitRecord, error) {
	var (
		u           model.UnitRecord
		parentID    sql.NullString
		branchID    sql.NullString
		branchName  string
		branchAbbr  string
		commanderID sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&parentID,
		&u.Name,
		&u.Abbreviation,
		&branchID,
		&branchName,
		&branchAbbr,
		&u.UnitType,
		&u.Motto,
		&u.Location,
		&u.Established,
		&u.IsActive,
		&commanderID,
		&u.UpdatedAt,
	)
	if err != nil {
		return u, err
	}

	if parentID.Valid {
		u.ParentID = &parentID.String
	}
	if branchID.Valid {
		u.Branch = &model.BranchRef{ID: branchID.String, Name: branchName, Abbreviation: branchAbbr}
	}
	u.CommanderID = commanderID.String

	return u, nil
}

// UpsertUnit inserts or updates a unit
func (s *UnitStore) UpsertUnit(ctx context.Context, u *model.UnitRecord) error {
	query := `
		INSERT INTO units (id, parent_id, name, abbreviation, branch_id, branch_name,
		                   branch_abbreviation, unit_type, motto, location, established,
		                   is_active, commander_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			name = EXCLUDED.name,
			abbreviation = EXCLUDED.abbreviation,
			branch_id = EXCLUDED.branch_id,
			branch_name = EXCLUDED.branch_name,
			branch_abbreviation = EXCLUDED.branch_abbreviation,
			unit_type = EXCLUDED.unit_type,
			motto = EXCLUDED.motto,
			location = EXCLUDED.location,
			established = EXCLUDED.established,
			is_active = EXCLUDED.is_active,
			commander_id = EXCLUDED.commander_id,
			updated_at = EXCLUDED.updated_at
	`

	var parentID sql.NullString
	if u.HasParent() {
		parentID = nullString(*u.ParentID)
	}
	var branchID sql.NullString
	var branchName, branchAbbr string
	if u.Branch != nil {
		branchID = nullString(u.Branch.ID)
		branchName = u.Branch.Name
		branchAbbr = u.Branch.Abbreviation
	}

	u.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, query,
		u.ID,
		parentID,
		u.Name,
		u.Abbreviation,
		branchID,
		branchName,
		branchAbbr,
		u.UnitType,
		u.Motto,
		u.Location,
		u.Established,
		u.IsActive,
		nullString(u.CommanderID),
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert unit %s: %w", u.ID, err)
	}

	return nil
}

// GetAll retrieves all units ordered by name
func (s *UnitStore) GetAll(ctx context.Context) ([]model.UnitRecord, error) {
	query := `SELECT ` + unitColumns + ` FROM units ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get units: %w", err)
	}
	defer rows.Close()

	var units []model.UnitRecord
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}

	return units, rows.Err()
}

// GetByID retrieves a unit by its ID, returning nil when it does not exist
func (s *UnitStore) GetByID(ctx context.Context, id string) (*model.UnitRecord, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1`

	u, err := scanUnit(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit %s: %w", id, err)
	}

	return &u, nil
}

// DeleteMissing removes units whose ID is not in keep and returns how many were removed
func (s *UnitStore) DeleteMissing(ctx context.Context, keep []string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE NOT (id = ANY($1))`, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("failed to prune units: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
