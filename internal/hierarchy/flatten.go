package hierarchy

import (
	"github.com/jjenkins/orgadmin/internal/model"
)

// Row is a node annotated with its depth for indented rendering
type Row struct {
	Node        *model.UnitNode
	Depth       int
	HasChildren bool
	Expanded    bool
}

// Flatten lists every node in pre-order with its depth, parents before children
func Flatten(roots []*model.UnitNode) []Row {
	var rows []Row
	Walk(roots, func(n *model.UnitNode, depth int) {
		rows = append(rows, Row{
			Node:        n,
			Depth:       depth,
			HasChildren: len(n.Children) > 0,
			Expanded:    true,
		})
	})
	return rows
}
