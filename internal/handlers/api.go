package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/service"
)

type nodeJSON struct {
	ID           string                  `json:"id"`
	ParentID     *string                 `json:"parent_id"`
	Name         string                  `json:"name"`
	Abbreviation string                  `json:"abbreviation"`
	Branch       *model.BranchRef        `json:"branch,omitempty"`
	UnitType     string                  `json:"unit_type,omitempty"`
	IsActive     bool                    `json:"is_active"`
	Positions    []model.PositionRecord  `json:"positions"`
	Slots        []model.RecruitmentSlot `json:"recruitment_slots"`
	Staffing     hierarchy.Staffing      `json:"staffing"`
	Children     []nodeJSON              `json:"children"`
}

type hierarchyJSON struct {
	Units              int                     `json:"units"`
	Roots              []nodeJSON              `json:"roots"`
	Diagnostics        hierarchy.Diagnostics   `json:"diagnostics"`
	UnmatchedPositions []model.PositionRecord  `json:"unmatched_positions"`
	UnmatchedSlots     []model.RecruitmentSlot `json:"unmatched_slots"`
}

func toNodeJSON(nodes []*model.UnitNode, staffing map[string]hierarchy.Staffing) []nodeJSON {
	out := make([]nodeJSON, 0, len(nodes))
	for _, n := range nodes {
		slots := n.Slots
		if slots == nil {
			slots = []model.RecruitmentSlot{}
		}
		out = append(out, nodeJSON{
			ID:           n.ID,
			ParentID:     n.ParentID,
			Name:         n.Name,
			Abbreviation: n.Abbreviation,
			Branch:       n.Branch,
			UnitType:     n.UnitType,
			IsActive:     n.IsActive,
			Positions:    n.Positions,
			Slots:        slots,
			Staffing:     staffing[n.ID],
			Children:     toNodeJSON(n.Children, staffing),
		})
	}
	return out
}

// HierarchyHandler returns the merged forest and its build diagnostics as JSON
func HierarchyHandler(src service.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			return err
		}

		roots := a.Roots
		if q := c.Query("q"); q != "" {
			roots = hierarchy.Filter(roots, q)
		}

		return c.JSON(hierarchyJSON{
			Units:              a.Forest.Count(),
			Roots:              toNodeJSON(roots, a.Staffing),
			Diagnostics:        a.Forest.Diagnostics,
			UnmatchedPositions: orEmptySlice(a.UnmatchedPositions),
			UnmatchedSlots:     orEmptySlice(a.UnmatchedSlots),
		})
	}
}

func orEmptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
