package service

import (
	"context"
	"fmt"

	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
)

// Assembly is a fully merged snapshot of the organization: the unit forest
// with positions, slots and members attached, plus staffing rollups
type Assembly struct {
	Forest             *hierarchy.Forest
	Roots              []*model.UnitNode
	Staffing           map[string]hierarchy.Staffing
	UnmatchedPositions []model.PositionRecord
	UnmatchedSlots     []model.RecruitmentSlot

	index map[string]*model.UnitNode
}

// Assemble loads every record from src and builds the merged forest
func Assemble(ctx context.Context, src Source) (*Assembly, error) {
	units, err := src.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load units: %w", err)
	}
	positions, err := src.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	slots, err := src.Slots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recruitment slots: %w", err)
	}
	members, err := src.Members(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	return NewAssembly(units, positions, slots, members), nil
}

// NewAssembly builds an Assembly from already loaded records
func NewAssembly(units []model.UnitRecord, positions []model.PositionRecord, slots []model.RecruitmentSlot, members []model.MemberRecord) *Assembly {
	forest := hierarchy.Build(units)

	roots := hierarchy.AttachPositions(forest.Roots, positions)
	roots = hierarchy.AttachSlots(roots, slots)
	roots = hierarchy.AttachMembers(roots, members)

	a := &Assembly{
		Forest:             forest,
		Roots:              roots,
		Staffing:           hierarchy.Rollup(roots),
		UnmatchedPositions: hierarchy.UnmatchedPositions(forest.Roots, positions),
		UnmatchedSlots:     hierarchy.UnmatchedSlots(forest.Roots, slots),
		index:              make(map[string]*model.UnitNode),
	}
	hierarchy.Walk(roots, func(n *model.UnitNode, _ int) {
		a.index[n.ID] = n
	})
	return a
}

// Find returns the merged node with the given ID
func (a *Assembly) Find(id string) (*model.UnitNode, bool) {
	n, ok := a.index[id]
	return n, ok
}

// Ancestors returns the merged ancestors of a unit ordered from the root down
func (a *Assembly) Ancestors(id string) []*model.UnitNode {
	var out []*model.UnitNode
	for _, n := range a.Forest.Ancestors(id) {
		if merged, ok := a.index[n.ID]; ok {
			out = append(out, merged)
		}
	}
	return out
}

// Units returns the raw unit records in the forest
func (a *Assembly) Units() []model.UnitRecord {
	out := make([]model.UnitRecord, 0, len(a.index))
	hierarchy.Walk(a.Roots, func(n *model.UnitNode, _ int) {
		out = append(out, n.UnitRecord)
	})
	return out
}
