package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/templates"
)

func PositionsHandler(src service.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			return err
		}

		roots := a.Roots
		if q := c.Query("q"); q != "" {
			roots = hierarchy.Filter(roots, q)
		}

		return render(c, templates.Positions(templates.PositionsProps{
			Rows:      hierarchy.Flatten(roots),
			Unmatched: a.UnmatchedPositions,
		}))
	}
}

func RecruitmentHandler(src service.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			return err
		}

		showInactive := c.Query("inactive") == "1"
		var rows []templates.SlotRow
		hierarchy.Walk(a.Roots, func(n *model.UnitNode, _ int) {
			for _, s := range n.Slots {
				if s.IsActive || showInactive {
					rows = append(rows, templates.SlotRow{Unit: n, Slot: s})
				}
			}
		})

		return render(c, templates.Recruitment(rows))
	}
}
