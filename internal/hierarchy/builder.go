// Package hierarchy assembles flat unit records into a forest and merges
// per-unit collections onto it.
package hierarchy

import (
	"github.com/jjenkins/orgadmin/internal/model"
)

// Diagnostics lists records the builder placed by fallback rather than by
// their parent reference
type Diagnostics struct {
	// Orphans reference a parent that is not in the input; they become roots
	Orphans []model.UnitRecord `json:"orphans"`
	// Duplicates are earlier occurrences of a repeated identifier; they are dropped
	Duplicates []model.UnitRecord `json:"duplicates"`
	// CycleBreaks were promoted to roots to cut a parent cycle
	CycleBreaks []model.UnitRecord `json:"cycle_breaks"`
}

// Empty reports whether the build needed no fallbacks
func (d Diagnostics) Empty() bool {
	return len(d.Orphans) == 0 && len(d.Duplicates) == 0 && len(d.CycleBreaks) == 0
}

// Forest is an assembled unit hierarchy. It is rebuilt from scratch on every
// refresh and should be treated as read-only once returned.
type Forest struct {
	Roots       []*model.UnitNode
	Diagnostics Diagnostics

	index   map[string]*model.UnitNode
	parents map[string]*model.UnitNode
}

// BuildHierarchy returns only the roots of Build(records)
func BuildHierarchy(records []model.UnitRecord) []*model.UnitNode {
	return Build(records).Roots
}

// Build assembles records into a forest in two passes over an id->node map.
// Children keep the encounter order of the input. Duplicate identifiers are
// last-write-wins: only the final occurrence is placed. A parent reference
// missing from the input makes the record a root. Parent cycles are cut by
// promoting one node per cycle to a root.
func Build(records []model.UnitRecord) *Forest {
	index := make(map[string]*model.UnitNode, len(records))
	last := make(map[string]int, len(records))

	// Pass 1: allocate nodes
	for i, rec := range records {
		index[rec.ID] = model.NewUnitNode(rec)
		last[rec.ID] = i
	}

	f := &Forest{
		Roots: []*model.UnitNode{},
		index: index,
	}

	// Pass 2: link each surviving record under its parent
	for i, rec := range records {
		if last[rec.ID] != i {
			f.Diagnostics.Duplicates = append(f.Diagnostics.Duplicates, rec)
			continue
		}

		node := index[rec.ID]
		if !rec.HasParent() {
			f.Roots = append(f.Roots, node)
			continue
		}

		parent, ok := index[*rec.ParentID]
		if !ok {
			f.Diagnostics.Orphans = append(f.Diagnostics.Orphans, rec)
			f.Roots = append(f.Roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	reached := make(map[string]bool, len(index))
	for _, root := range f.Roots {
		markReached(root, reached)
	}
	if len(reached) < len(index) {
		f.breakCycles(records, last, reached)
	}

	f.parents = make(map[string]*model.UnitNode, len(index))
	Walk(f.Roots, func(n *model.UnitNode, _ int) {
		for _, child := range n.Children {
			f.parents[child.ID] = n
		}
	})

	return f
}

// breakCycles places every record left unreachable from the roots. Such a
// record sits in or below a parent cycle. Starting from the first one in input
// order, the parent chain is followed until a node repeats. That node is
// detached from its parent and appended to the roots.
func (f *Forest) breakCycles(records []model.UnitRecord, last map[string]int, reached map[string]bool) {
	for i, rec := range records {
		if last[rec.ID] != i || reached[rec.ID] {
			continue
		}

		entry := f.index[cycleEntry(rec.ID, f.index)]
		parent := f.index[*entry.ParentID]
		parent.Children = removeChild(parent.Children, entry)

		f.Roots = append(f.Roots, entry)
		f.Diagnostics.CycleBreaks = append(f.Diagnostics.CycleBreaks, entry.UnitRecord)
		markReached(entry, reached)
	}
}

// cycleEntry follows parent references from id and returns the first
// identifier visited twice. The caller guarantees every node on the chain
// has a parent present in index.
func cycleEntry(id string, index map[string]*model.UnitNode) string {
	seen := make(map[string]bool)
	cur := id
	for !seen[cur] {
		seen[cur] = true
		cur = *index[cur].ParentID
	}
	return cur
}

func removeChild(children []*model.UnitNode, target *model.UnitNode) []*model.UnitNode {
	out := children[:0]
	for _, c := range children {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

func markReached(n *model.UnitNode, reached map[string]bool) {
	reached[n.ID] = true
	for _, child := range n.Children {
		markReached(child, reached)
	}
}

// Index returns the id->node map. Callers must not modify it.
func (f *Forest) Index() map[string]*model.UnitNode {
	return f.index
}

// Count returns the number of distinct units in the forest
func (f *Forest) Count() int {
	return len(f.index)
}

// Find returns the node with the given id
func (f *Forest) Find(id string) (*model.UnitNode, bool) {
	n, ok := f.index[id]
	return n, ok
}

// Parent returns the node's parent as placed in the forest. Orphans and
// promoted cycle members have none.
func (f *Forest) Parent(id string) (*model.UnitNode, bool) {
	p, ok := f.parents[id]
	return p, ok
}

// Ancestors returns the chain from the root down to the node's parent
func (f *Forest) Ancestors(id string) []*model.UnitNode {
	var chain []*model.UnitNode
	for p, ok := f.parents[id]; ok; p, ok = f.parents[p.ID] {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// IsDescendant reports whether id sits somewhere below ancestorID
func (f *Forest) IsDescendant(id, ancestorID string) bool {
	for p, ok := f.parents[id]; ok; p, ok = f.parents[p.ID] {
		if p.ID == ancestorID {
			return true
		}
	}
	return false
}

// Walk visits every node depth-first in pre-order, passing the node depth
// (roots are depth 0)
func Walk(roots []*model.UnitNode, fn func(n *model.UnitNode, depth int)) {
	var visit func(nodes []*model.UnitNode, depth int)
	visit = func(nodes []*model.UnitNode, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			visit(n.Children, depth+1)
		}
	}
	visit(roots, 0)
}
