package handlers

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/templates"
	"github.com/jjenkins/orgadmin/internal/view"
)

const expandCookie = "units_expanded"

func expandState(c *fiber.Ctx) *view.ExpandState {
	return view.DecodeExpandState(c.Cookies(expandCookie))
}

func saveExpandState(c *fiber.Ctx, s *view.ExpandState) {
	c.Cookie(&fiber.Cookie{
		Name:     expandCookie,
		Value:    s.Encode(),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

// backToUnits redirects to the tree, keeping the search query
func backToUnits(c *fiber.Ctx) error {
	target := "/units"
	if q := c.Query("q"); q != "" {
		target += "?q=" + url.QueryEscape(q)
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func UnitsHandler(src service.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			return err
		}

		state := expandState(c)
		query := c.Query("q")
		mode := view.ParseMode(c.Query("mode"), func(key string) string { return c.Query(key) })

		props := templates.UnitsProps{
			Staffing:    a.Staffing,
			Total:       a.Forest.Count(),
			Query:       query,
			Mode:        mode,
			Diagnostics: a.Forest.Diagnostics,
			Flash:       c.Query("flash"),
		}

		// A search shows every match with its ancestors fully expanded
		if query != "" {
			props.Rows = hierarchy.Flatten(hierarchy.Filter(a.Roots, query))
		} else {
			props.Rows = state.Visible(a.Roots)
		}

		switch m := mode.(type) {
		case view.EditUnit:
			props.ModeUnit, _ = a.Find(m.UnitID)
		case view.AssignCommander:
			props.ModeUnit, _ = a.Find(m.UnitID)
		case view.CreatePosition:
			props.ModeUnit, _ = a.Find(m.UnitID)
		case view.MoveUnit:
			props.ModeUnit, _ = a.Find(m.UnitID)
			props.MoveTargets = moveTargets(a, m.UnitID)
		case view.AssignHolder:
			props.ModePos = findPosition(a.Roots, m.PositionID)
		}

		if c.Get("HX-Request") == "true" {
			return render(c, templates.UnitsBody(props))
		}
		return render(c, templates.Units(props))
	}
}

// moveTargets lists the units a unit may be moved under: everything except
// the unit itself and its descendants
func moveTargets(a *service.Assembly, unitID string) []hierarchy.Row {
	var out []hierarchy.Row
	for _, row := range hierarchy.Flatten(a.Roots) {
		if row.Node.ID == unitID || a.Forest.IsDescendant(row.Node.ID, unitID) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func findPosition(roots []*model.UnitNode, id string) *model.PositionRecord {
	var found *model.PositionRecord
	hierarchy.Walk(roots, func(n *model.UnitNode, _ int) {
		for i := range n.Positions {
			if found == nil && n.Positions[i].ID == id {
				found = &n.Positions[i]
			}
		}
	})
	return found
}

func ToggleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil || id == "" {
			return fiber.NewError(fiber.StatusBadRequest, "invalid unit id")
		}
		state := expandState(c)
		state.Toggle(id)
		saveExpandState(c, state)
		return backToUnits(c)
	}
}

func ExpandAllHandler(src service.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			return err
		}
		state := expandState(c)
		state.ExpandAll(a.Roots)
		saveExpandState(c, state)
		return backToUnits(c)
	}
}

func CollapseAllHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := expandState(c)
		state.CollapseAll()
		saveExpandState(c, state)
		return backToUnits(c)
	}
}

func UnitDetailHandler(src service.Source, snapshots SnapshotLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid unit id")
		}

		a, err := loadAssembly(c, src)
		if err != nil {
			return err
		}

		unit, ok := a.Find(id)
		if !ok {
			return renderStatus(c, fiber.StatusNotFound, templates.Message("Not found", "Unit not found"))
		}

		props := templates.UnitDetailProps{
			Unit:      unit,
			Ancestors: a.Ancestors(id),
			Direct:    hierarchy.Direct(unit),
			Total:     a.Staffing[id],
		}
		if snapshots != nil {
			props.Snapshots, err = snapshots.GetSnapshotsForUnit(c.UserContext(), id)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Error loading snapshots")
			}
		}

		// Opening a unit reveals it in the tree
		state := expandState(c)
		state.ExpandPath(a.Forest, id)
		saveExpandState(c, state)

		return render(c, templates.UnitDetail(props))
	}
}
