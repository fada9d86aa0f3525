package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MetricsService calculates and stores system-wide metrics
type MetricsService struct {
	db *sql.DB
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(db *sql.DB) *MetricsService {
	return &MetricsService{db: db}
}

// SystemMetrics represents calculated system-wide metrics
type SystemMetrics struct {
	TotalUnits         int
	ActiveUnits        int
	TotalPositions     int
	VacantPositions    int
	VacancyRate        decimal.Decimal
	OpenSlots          int
	TotalMembers       int
	LargestUnit        string
	LargestUnitMembers int
}

// CalculateAndStore calculates system metrics and stores them
func (m *MetricsService) CalculateAndStore(ctx context.Context) (*SystemMetrics, error) {
	metrics := &SystemMetrics{}

	unitQuery := `
		SELECT
			COUNT(*) as total_units,
			COUNT(*) FILTER (WHERE is_active) as active_units
		FROM units
	`
	if err := m.db.QueryRowContext(ctx, unitQuery).Scan(&metrics.TotalUnits, &metrics.ActiveUnits); err != nil {
		return nil, fmt.Errorf("failed to calculate unit metrics: %w", err)
	}

	positionQuery := `
		SELECT
			COUNT(*) as total_positions,
			COUNT(*) FILTER (WHERE is_vacant) as vacant_positions
		FROM positions
	`
	if err := m.db.QueryRowContext(ctx, positionQuery).Scan(&metrics.TotalPositions, &metrics.VacantPositions); err != nil {
		return nil, fmt.Errorf("failed to calculate position metrics: %w", err)
	}

	metrics.VacancyRate = vacancyRate(metrics.VacantPositions, metrics.TotalPositions)

	slotQuery := `
		SELECT COALESCE(SUM(GREATEST(total_slots - filled_slots - reserved_slots, 0)), 0)
		FROM recruitment_slots
		WHERE is_active
	`
	if err := m.db.QueryRowContext(ctx, slotQuery).Scan(&metrics.OpenSlots); err != nil {
		return nil, fmt.Errorf("failed to calculate open slots: %w", err)
	}

	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT id) FROM members`).Scan(&metrics.TotalMembers); err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	// Largest unit by direct membership
	largestQuery := `
		SELECT u.name, COUNT(m.id) as member_count
		FROM units u
		JOIN members m ON m.unit_id = u.id
		GROUP BY u.id, u.name
		ORDER BY member_count DESC, u.name
		LIMIT 1
	`
	err := m.db.QueryRowContext(ctx, largestQuery).Scan(&metrics.LargestUnit, &metrics.LargestUnitMembers)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find largest unit: %w", err)
	}

	values := []struct {
		name  string
		value string
	}{
		{"total_units", fmt.Sprintf("%d", metrics.TotalUnits)},
		{"active_units", fmt.Sprintf("%d", metrics.ActiveUnits)},
		{"total_positions", fmt.Sprintf("%d", metrics.TotalPositions)},
		{"vacant_positions", fmt.Sprintf("%d", metrics.VacantPositions)},
		{"vacancy_rate", metrics.VacancyRate.StringFixed(1)},
		{"open_slots", fmt.Sprintf("%d", metrics.OpenSlots)},
		{"total_members", fmt.Sprintf("%d", metrics.TotalMembers)},
		{"largest_unit", metrics.LargestUnit},
	}
	for _, v := range values {
		if err := m.storeMetric(ctx, v.name, v.value); err != nil {
			return nil, err
		}
	}

	return metrics, nil
}

func vacancyRate(vacant, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(vacant)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
}

// storeMetric stores a single metric value
func (m *MetricsService) storeMetric(ctx context.Context, name, value string) error {
	query := `
		INSERT INTO metrics (metric_name, metric_value, calculated_at)
		VALUES ($1, $2, $3)
	`

	_, err := m.db.ExecContext(ctx, query, name, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store metric %s: %w", name, err)
	}

	return nil
}

// GetLatestMetrics retrieves the most recent value of every metric
func (m *MetricsService) GetLatestMetrics(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT DISTINCT ON (metric_name) metric_name, metric_value
		FROM metrics
		ORDER BY metric_name, calculated_at DESC
	`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics[name] = value
	}

	return metrics, rows.Err()
}
