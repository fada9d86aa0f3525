package hierarchy_test

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// recordsFrom turns generated parent references into unit records. Ref -1
// means no parent, refs past the end point at missing units, and ids may
// repeat so duplicates and cycles both occur.
func recordsFrom(refs []int, idMod int) []model.UnitRecord {
	records := make([]model.UnitRecord, len(refs))
	for i, ref := range refs {
		id := strconv.Itoa(i % idMod)
		var parent string
		switch {
		case ref < 0:
		case ref >= len(refs):
			parent = "missing-" + strconv.Itoa(ref)
		default:
			parent = strconv.Itoa(ref % idMod)
		}
		records[i] = unit(id, parent, "Unit "+id)
	}
	return records
}

func distinctIDs(records []model.UnitRecord) map[string]bool {
	out := make(map[string]bool)
	for _, r := range records {
		out[r.ID] = true
	}
	return out
}

func shape(roots []*model.UnitNode) string {
	var s string
	hierarchy.Walk(roots, func(n *model.UnitNode, depth int) {
		s += fmt.Sprintf("%d:%s;", depth, n.ID)
	})
	return s
}

func builderProperties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

var (
	genRefs  = gen.SliceOf(gen.IntRange(-1, 40))
	genIDMod = gen.IntRange(1, 40)
)

func TestBuild_EveryUnitPlacedExactlyOnce(t *testing.T) {
	properties := builderProperties(t)

	properties.Property("each distinct id is reachable once from the roots", prop.ForAll(
		func(refs []int, idMod int) bool {
			records := recordsFrom(refs, idMod)
			f := hierarchy.Build(records)

			seen := make(map[string]int)
			hierarchy.Walk(f.Roots, func(n *model.UnitNode, _ int) {
				seen[n.ID]++
			})

			want := distinctIDs(records)
			if len(seen) != len(want) || f.Count() != len(want) {
				return false
			}
			for id := range want {
				if seen[id] != 1 {
					return false
				}
			}
			return true
		},
		genRefs, genIDMod,
	))

	properties.TestingRun(t)
}

func TestBuild_RootsAreAccountedFor(t *testing.T) {
	properties := builderProperties(t)

	properties.Property("roots are parentless, orphaned or cycle breaks", prop.ForAll(
		func(refs []int, idMod int) bool {
			records := recordsFrom(refs, idMod)
			f := hierarchy.Build(records)

			parentless := 0
			last := make(map[string]model.UnitRecord)
			for _, r := range records {
				last[r.ID] = r
			}
			for _, r := range last {
				if !r.HasParent() {
					parentless++
				}
			}

			d := f.Diagnostics
			return len(f.Roots) == parentless+len(d.Orphans)+len(d.CycleBreaks)
		},
		genRefs, genIDMod,
	))

	properties.Property("non-root nodes sit under their declared parent", prop.ForAll(
		func(refs []int, idMod int) bool {
			f := hierarchy.Build(recordsFrom(refs, idMod))
			ok := true
			hierarchy.Walk(f.Roots, func(n *model.UnitNode, _ int) {
				for _, child := range n.Children {
					if child.ParentID == nil || *child.ParentID != n.ID {
						ok = false
					}
				}
			})
			return ok
		},
		genRefs, genIDMod,
	))

	properties.TestingRun(t)
}

func TestBuild_Deterministic(t *testing.T) {
	properties := builderProperties(t)

	properties.Property("building the same records twice yields the same forest", prop.ForAll(
		func(refs []int, idMod int) bool {
			records := recordsFrom(refs, idMod)
			return shape(hierarchy.Build(records).Roots) == shape(hierarchy.Build(records).Roots)
		},
		genRefs, genIDMod,
	))

	properties.Property("attaching positions does not change the shape", prop.ForAll(
		func(refs []int, idMod int) bool {
			roots := hierarchy.BuildHierarchy(recordsFrom(refs, idMod))
			before := shape(roots)
			merged := hierarchy.AttachPositions(roots, []model.PositionRecord{{ID: "p", UnitID: "0"}})
			return shape(merged) == before && shape(roots) == before
		},
		genRefs, genIDMod,
	))

	properties.TestingRun(t)
}
