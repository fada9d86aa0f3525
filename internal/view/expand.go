// Package view holds per-session presentation state for the unit pages.
package view

import (
	"encoding/base64"
	"encoding/json"
	"sort"

	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
)

// ExpandState is the set of expanded unit ids. It is keyed by id, so it
// stays valid across tree rebuilds.
type ExpandState struct {
	expanded map[string]struct{}
}

// NewExpandState returns a state with the given ids expanded
func NewExpandState(ids ...string) *ExpandState {
	s := &ExpandState{expanded: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Expand(id)
	}
	return s
}

// Toggle inverts membership of id and returns whether it is now expanded
func (s *ExpandState) Toggle(id string) bool {
	if s.IsExpanded(id) {
		s.Collapse(id)
		return false
	}
	s.Expand(id)
	return true
}

func (s *ExpandState) Expand(id string) {
	if id != "" {
		s.expanded[id] = struct{}{}
	}
}

func (s *ExpandState) Collapse(id string) {
	delete(s.expanded, id)
}

func (s *ExpandState) IsExpanded(id string) bool {
	_, ok := s.expanded[id]
	return ok
}

// ExpandAll expands every node that has children
func (s *ExpandState) ExpandAll(roots []*model.UnitNode) {
	hierarchy.Walk(roots, func(n *model.UnitNode, _ int) {
		if len(n.Children) > 0 {
			s.Expand(n.ID)
		}
	})
}

func (s *ExpandState) CollapseAll() {
	s.expanded = make(map[string]struct{})
}

// ExpandPath expands every ancestor of id so the unit becomes visible
func (s *ExpandState) ExpandPath(f *hierarchy.Forest, id string) {
	for _, a := range f.Ancestors(id) {
		s.Expand(a.ID)
	}
}

// IDs returns the expanded ids in sorted order
func (s *ExpandState) IDs() []string {
	ids := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *ExpandState) Len() int {
	return len(s.expanded)
}

// Visible lists the rows to render: every root, and the children of a node
// only when that node is expanded and has children
func (s *ExpandState) Visible(roots []*model.UnitNode) []hierarchy.Row {
	var rows []hierarchy.Row
	var visit func(nodes []*model.UnitNode, depth int)
	visit = func(nodes []*model.UnitNode, depth int) {
		for _, n := range nodes {
			hasChildren := len(n.Children) > 0
			expanded := hasChildren && s.IsExpanded(n.ID)
			rows = append(rows, hierarchy.Row{
				Node:        n,
				Depth:       depth,
				HasChildren: hasChildren,
				Expanded:    expanded,
			})
			if expanded {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(roots, 0)
	return rows
}

// Encode serializes the state for a session cookie
func (s *ExpandState) Encode() string {
	b, _ := json.Marshal(s.IDs())
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeExpandState parses a value produced by Encode. Malformed input
// yields an empty state.
func DecodeExpandState(v string) *ExpandState {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return NewExpandState()
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return NewExpandState()
	}
	return NewExpandState(ids...)
}
