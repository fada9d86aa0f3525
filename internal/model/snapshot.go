package model

import "time"

// StaffingSnapshot is a historical record of a unit's rolled-up staffing
type StaffingSnapshot struct {
	ID             int
	UnitID         string
	UnitName       string
	PositionCount  int
	VacantCount    int
	SlotsTotal     int
	SlotsAvailable int
	Checksum       string
	SnapshotDate   time.Time
	CreatedAt      time.Time
}
