package hierarchy

import (
	"strings"

	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Filter returns a pruned copy of the tree holding the units whose name or
// abbreviation fuzzy-matches query, together with their ancestors. A blank
// query returns roots unchanged.
func Filter(roots []*model.UnitNode, query string) []*model.UnitNode {
	query = strings.TrimSpace(query)
	if query == "" {
		return roots
	}

	var prune func(nodes []*model.UnitNode) []*model.UnitNode
	prune = func(nodes []*model.UnitNode) []*model.UnitNode {
		out := []*model.UnitNode{}
		for _, n := range nodes {
			kept := prune(n.Children)
			if len(kept) == 0 && !Matches(n, query) {
				continue
			}
			clone := *n
			clone.Children = kept
			out = append(out, &clone)
		}
		return out
	}
	return prune(roots)
}

// Matches reports whether query fuzzy-matches the unit's name or abbreviation
func Matches(n *model.UnitNode, query string) bool {
	return fuzzy.MatchFold(query, n.Name) || fuzzy.MatchFold(query, n.Abbreviation)
}
