package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/orgadmin/internal/model"
)

// MemberStore handles database operations for unit member summaries
type MemberStore struct {
	db *sql.DB
}

// NewMemberStore creates a new MemberStore
func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

// ReplaceAll swaps the member table contents for the given list in one
// transaction. A user listed under several units keeps one row per unit.
func (s *MemberStore) ReplaceAll(ctx context.Context, members []model.MemberRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM members"); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}

	query := `
		INSERT INTO members (id, unit_id, rank, username, service_number)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id, unit_id) DO UPDATE SET
			rank = EXCLUDED.rank,
			username = EXCLUDED.username,
			service_number = EXCLUDED.service_number
	`
	for _, m := range members {
		if _, err := tx.ExecContext(ctx, query, m.ID, m.UnitID, m.Rank, m.Username, m.ServiceNumber); err != nil {
			return fmt.Errorf("failed to insert member %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetAll retrieves all members
func (s *MemberStore) GetAll(ctx context.Context) ([]model.MemberRecord, error) {
	query := `
		SELECT id, unit_id, rank, username, service_number
		FROM members
		ORDER BY unit_id, username
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []model.MemberRecord
	for rows.Next() {
		var m model.MemberRecord
		if err := rows.Scan(&m.ID, &m.UnitID, &m.Rank, &m.Username, &m.ServiceNumber); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
