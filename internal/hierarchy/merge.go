package hierarchy

import (
	"github.com/jjenkins/orgadmin/internal/model"
)

// AttachPositions returns a copy of the tree where every node carries the
// positions whose UnitID equals its ID, in input order. Nodes without
// positions get an empty slice. Positions for units absent from the tree are
// dropped. The input tree is not modified.
func AttachPositions(roots []*model.UnitNode, positions []model.PositionRecord) []*model.UnitNode {
	byUnit := groupBy(positions, func(p model.PositionRecord) string { return p.UnitID })
	return mapTree(roots, func(n *model.UnitNode) {
		n.Positions = append([]model.PositionRecord{}, byUnit[n.ID]...)
	})
}

// AttachSlots returns a copy of the tree with recruitment slots attached by UnitID
func AttachSlots(roots []*model.UnitNode, slots []model.RecruitmentSlot) []*model.UnitNode {
	byUnit := groupBy(slots, func(s model.RecruitmentSlot) string { return s.UnitID })
	return mapTree(roots, func(n *model.UnitNode) {
		n.Slots = append([]model.RecruitmentSlot{}, byUnit[n.ID]...)
	})
}

// AttachMembers returns a copy of the tree with member summaries attached by UnitID
func AttachMembers(roots []*model.UnitNode, members []model.MemberRecord) []*model.UnitNode {
	byUnit := groupBy(members, func(m model.MemberRecord) string { return m.UnitID })
	return mapTree(roots, func(n *model.UnitNode) {
		n.Members = append([]model.MemberRecord{}, byUnit[n.ID]...)
	})
}

// UnmatchedPositions returns the positions that reference a unit not present in the tree
func UnmatchedPositions(roots []*model.UnitNode, positions []model.PositionRecord) []model.PositionRecord {
	ids := collectIDs(roots)
	var out []model.PositionRecord
	for _, p := range positions {
		if !ids[p.UnitID] {
			out = append(out, p)
		}
	}
	return out
}

// UnmatchedSlots returns the slots that reference a unit not present in the tree
func UnmatchedSlots(roots []*model.UnitNode, slots []model.RecruitmentSlot) []model.RecruitmentSlot {
	ids := collectIDs(roots)
	var out []model.RecruitmentSlot
	for _, s := range slots {
		if !ids[s.UnitID] {
			out = append(out, s)
		}
	}
	return out
}

func collectIDs(roots []*model.UnitNode) map[string]bool {
	ids := make(map[string]bool)
	Walk(roots, func(n *model.UnitNode, _ int) {
		ids[n.ID] = true
	})
	return ids
}

func groupBy[T any](items []T, key func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, item := range items {
		k := key(item)
		out[k] = append(out[k], item)
	}
	return out
}

// mapTree clones every node of the tree, applies fn to the clone and
// returns the cloned roots
func mapTree(roots []*model.UnitNode, fn func(n *model.UnitNode)) []*model.UnitNode {
	out := make([]*model.UnitNode, 0, len(roots))
	for _, n := range roots {
		clone := *n
		clone.Children = mapTree(n.Children, fn)
		fn(&clone)
		out = append(out, &clone)
	}
	return out
}
