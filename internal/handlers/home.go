package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/templates"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func HomeHandler(src service.Source, metrics MetricsReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := loadAssembly(c, src)
		if err != nil {
			return err
		}

		m := templates.HomeMetrics{
			TotalUnits:  a.Forest.Count(),
			HasData:     a.Forest.Count() > 0,
			Orphans:     len(a.Forest.Diagnostics.Orphans),
			Duplicates:  len(a.Forest.Diagnostics.Duplicates),
			CycleBreaks: len(a.Forest.Diagnostics.CycleBreaks),
		}

		var total hierarchy.Staffing
		for _, root := range a.Roots {
			s := a.Staffing[root.ID]
			total.Positions += s.Positions
			total.Vacant += s.Vacant
			total.SlotsAvailable += s.SlotsAvailable
		}
		m.TotalPositions = total.Positions
		m.VacantPositions = total.Vacant
		m.OpenSlots = total.SlotsAvailable
		m.VacancyRate = decimal.Zero.StringFixed(1)
		if total.Positions > 0 {
			m.VacancyRate = decimal.NewFromInt(int64(total.Vacant)).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(total.Positions))).
				StringFixed(1)
		}

		largest := 0
		hierarchy.Walk(a.Roots, func(n *model.UnitNode, _ int) {
			m.TotalMembers += len(n.Members)
			if len(n.Members) > largest {
				largest = len(n.Members)
				m.LargestUnit = n.Name
			}
		})

		// Without loaded members, fall back to the figure from the last import
		if metrics != nil {
			stored, err := metrics.GetLatestMetrics(c.UserContext())
			if err != nil {
				logrus.WithError(err).Warn("Error loading stored metrics")
			} else if name := stored["largest_unit"]; name != "" && m.LargestUnit == "" {
				m.LargestUnit = name
			}
		}

		return render(c, templates.Home(m))
	}
}
