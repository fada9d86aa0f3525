package model

import "time"

// BranchRef identifies the service branch a unit belongs to
type BranchRef struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Abbreviation string `json:"abbreviation,omitempty" yaml:"abbreviation"`
}

// UnitRecord represents one organizational unit as returned by the backend
type UnitRecord struct {
	ID           string     `json:"id"`
	ParentID     *string    `json:"parent_id"`
	Name         string     `json:"name"`
	Abbreviation string     `json:"abbreviation,omitempty"`
	Branch       *BranchRef `json:"branch,omitempty"`
	UnitType     string     `json:"unit_type,omitempty"`
	Motto        string     `json:"motto,omitempty"`
	Location     string     `json:"location,omitempty"`
	Established  string     `json:"established_date,omitempty"`
	IsActive     bool       `json:"is_active"`
	CommanderID  string     `json:"commander_id,omitempty"`
	UpdatedAt    time.Time  `json:"-"`
}

// HasParent reports whether the record references a parent unit
func (u UnitRecord) HasParent() bool {
	return u.ParentID != nil && *u.ParentID != ""
}

// DisplayAbbreviation returns the abbreviation, falling back to the name
func (u UnitRecord) DisplayAbbreviation() string {
	if u.Abbreviation != "" {
		return u.Abbreviation
	}
	return u.Name
}

// BranchName returns the branch name or "" when the unit has no branch
func (u UnitRecord) BranchName() string {
	if u.Branch == nil {
		return ""
	}
	return u.Branch.Name
}

// UnitNode is a UnitRecord placed in an assembled hierarchy.
// A node owns its Children, Positions, Slots and Members slices.
type UnitNode struct {
	UnitRecord
	Children  []*UnitNode       `json:"children"`
	Positions []PositionRecord  `json:"positions"`
	Slots     []RecruitmentSlot `json:"slots,omitempty"`
	Members   []MemberRecord    `json:"members,omitempty"`
}

// NewUnitNode wraps a record with empty collections
func NewUnitNode(rec UnitRecord) *UnitNode {
	return &UnitNode{
		UnitRecord: rec,
		Children:   []*UnitNode{},
		Positions:  []PositionRecord{},
	}
}

// StringPtr returns a pointer to s, or nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
