package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/lib/pq"
)

// PositionStore handles database operations for positions
type PositionStore struct {
	db *sql.DB
}

// NewPositionStore creates a new PositionStore
func NewPositionStore(db *sql.DB) *PositionStore {
	return &PositionStore{db: db}
}

const positionColumns = `
	id, unit_id, role_id, role_name, display_title, title, identifier, is_vacant,
	holder_id, holder_rank, holder_username, holder_service_number
`

func scanPosition(row rowScanner) (model.PositionRecord, error) {
	var (
		p        model.PositionRecord
		roleID   sql.NullString
		roleName string
		holderID sql.NullString
		rank     string
		username string
		svcNum   string
	)
	err := row.Scan(
		&p.ID,
		&p.UnitID,
		&roleID,
		&roleName,
		&p.DisplayTitle,
		&p.Title,
		&p.Identifier,
		&p.IsVacant,
		&holderID,
		&rank,
		&username,
		&svcNum,
	)
	if err != nil {
		return p, err
	}

	if roleID.Valid {
		p.Role = &model.RoleRef{ID: roleID.String, Name: roleName}
	}
	if holderID.Valid || username != "" {
		p.CurrentHolder = &model.Holder{
			UserID:        holderID.String,
			Rank:          rank,
			Username:      username,
			ServiceNumber: svcNum,
		}
	}

	return p, nil
}

// UpsertPosition inserts or updates a position
func (s *PositionStore) UpsertPosition(ctx context.Context, p *model.PositionRecord) error {
	query := `
		INSERT INTO positions (id, unit_id, role_id, role_name, display_title, title,
		                       identifier, is_vacant, holder_id, holder_rank,
		                       holder_username, holder_service_number, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			unit_id = EXCLUDED.unit_id,
			role_id = EXCLUDED.role_id,
			role_name = EXCLUDED.role_name,
			display_title = EXCLUDED.display_title,
			title = EXCLUDED.title,
			identifier = EXCLUDED.identifier,
			is_vacant = EXCLUDED.is_vacant,
			holder_id = EXCLUDED.holder_id,
			holder_rank = EXCLUDED.holder_rank,
			holder_username = EXCLUDED.holder_username,
			holder_service_number = EXCLUDED.holder_service_number,
			updated_at = EXCLUDED.updated_at
	`

	var roleID sql.NullString
	var roleName string
	if p.Role != nil {
		roleID = nullString(p.Role.ID)
		roleName = p.Role.Name
	}
	var holder model.Holder
	if p.CurrentHolder != nil {
		holder = *p.CurrentHolder
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.UnitID,
		roleID,
		roleName,
		p.DisplayTitle,
		p.Title,
		p.Identifier,
		p.IsVacant,
		nullString(holder.UserID),
		holder.Rank,
		holder.Username,
		holder.ServiceNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position %s: %w", p.ID, err)
	}

	return nil
}

// GetAll retrieves all positions
func (s *PositionStore) GetAll(ctx context.Context) ([]model.PositionRecord, error) {
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY unit_id, display_title, id`
	return s.query(ctx, query)
}

func (s *PositionStore) query(ctx context.Context, query string, args ...any) ([]model.PositionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []model.PositionRecord
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// DeleteMissing removes positions whose ID is not in keep
func (s *PositionStore) DeleteMissing(ctx context.Context, keep []string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE NOT (id = ANY($1))`, pq.Array(keep))
	if err != nil {
		return 0, fmt.Errorf("failed to prune positions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
