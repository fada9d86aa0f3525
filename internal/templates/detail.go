package templates

import (
	"context"
	"net/url"

	"github.com/a-h/templ"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
)

// UnitDetailProps is the data for a single unit page
type UnitDetailProps struct {
	Unit      *model.UnitNode
	Ancestors []*model.UnitNode
	Direct    hierarchy.Staffing
	Total     hierarchy.Staffing
	Snapshots []model.StaffingSnapshot
}

func UnitDetail(p UnitDetailProps) templ.Component {
	u := p.Unit
	return Layout(u.Name, component(func(_ context.Context, h *html) {
		h.raw(`<p class="muted"><a href="/units">Units</a>`)
		for _, a := range p.Ancestors {
			h.rawf(` / <a href="/units/%s">%s</a>`, url.PathEscape(a.ID), a.DisplayAbbreviation())
		}
		h.raw(`</p>`)

		h.rawf(`<h1>%s</h1>`, u.Name)
		h.raw(`<table style="width:auto">`)
		detailRow(h, "Abbreviation", u.Abbreviation)
		detailRow(h, "Branch", u.BranchName())
		detailRow(h, "Type", u.UnitType)
		detailRow(h, "Motto", u.Motto)
		detailRow(h, "Location", u.Location)
		detailRow(h, "Established", u.Established)
		detailRow(h, "Commander", u.CommanderID)
		h.raw(`</table>`)

		h.raw(`<h2>Staffing</h2><table style="width:auto"><thead><tr><th></th><th>This unit</th><th>Including subordinates</th></tr></thead><tbody>`)
		staffRow(h, "Positions", p.Direct.Positions, p.Total.Positions)
		staffRow(h, "Filled", p.Direct.Filled, p.Total.Filled)
		staffRow(h, "Vacant", p.Direct.Vacant, p.Total.Vacant)
		staffRow(h, "Open slots", p.Direct.SlotsAvailable, p.Total.SlotsAvailable)
		h.rawf(`<tr><td>Fill rate</td><td>%s%%</td><td>%s%%</td></tr>`,
			p.Direct.FillRate().StringFixed(1), p.Total.FillRate().StringFixed(1))
		h.raw(`</tbody></table>`)

		if len(u.Children) > 0 {
			h.raw(`<h2>Subordinate units</h2><ul>`)
			for _, c := range u.Children {
				h.rawf(`<li><a href="/units/%s">%s</a></li>`, url.PathEscape(c.ID), c.Name)
			}
			h.raw(`</ul>`)
		}

		h.rawf(`<h2>Positions</h2><p><a href="/units?mode=create-position&unit=%s">Add position</a></p>`, url.QueryEscape(u.ID))
		if len(u.Positions) == 0 {
			h.raw(`<p class="muted">No positions.</p>`)
		} else {
			h.raw(`<table><thead><tr><th>Position</th><th>Role</th><th>Holder</th><th></th></tr></thead><tbody>`)
			for _, pos := range u.Positions {
				class := ""
				if pos.IsVacant {
					class = "vacant"
				}
				h.rawf(`<tr><td>%s</td><td>%s</td><td class="%s">%s</td>`, positionLabel(pos), pos.RoleName(), class, holderLabel(pos))
				h.rawf(`<td><a href="/units?mode=assign-holder&position=%s">Assign</a></td></tr>`, url.QueryEscape(pos.ID))
			}
			h.raw(`</tbody></table>`)
		}

		if len(u.Members) > 0 {
			h.rawf(`<h2>Members (%d)</h2><ul>`, len(u.Members))
			for _, m := range u.Members {
				h.rawf(`<li>%s %s <span class="muted">%s</span></li>`, m.Rank, m.Username, m.ServiceNumber)
			}
			h.raw(`</ul>`)
		}

		if len(p.Snapshots) > 0 {
			h.raw(`<h2>History</h2><table><thead><tr><th>Date</th><th>Positions</th><th>Vacant</th><th>Slots</th><th>Open</th></tr></thead><tbody>`)
			for _, s := range p.Snapshots {
				h.rawf(`<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>`,
					s.SnapshotDate.Format("2006-01-02"), s.PositionCount, s.VacantCount, s.SlotsTotal, s.SlotsAvailable)
			}
			h.raw(`</tbody></table>`)
		}
	}))
}

func detailRow(h *html, label, value string) {
	if value == "" {
		value = "-"
	}
	h.rawf(`<tr><th>%s</th><td>%s</td></tr>`, label, value)
}

func staffRow(h *html, label string, direct, total int) {
	h.rawf(`<tr><td>%s</td><td>%d</td><td>%d</td></tr>`, label, direct, total)
}

// PositionsProps is the data for the roster page
type PositionsProps struct {
	Rows      []hierarchy.Row
	Unmatched []model.PositionRecord
}

func Positions(p PositionsProps) templ.Component {
	return Layout("Positions", component(func(_ context.Context, h *html) {
		h.raw(`<h1>Positions</h1><p><a href="/export/positions.csv">Download CSV</a> · <a href="/export/positions.xlsx">Download Excel</a></p>`)
		h.raw(`<table><thead><tr><th>Position</th><th>Role</th><th>Holder</th><th>Service number</th></tr></thead><tbody>`)
		for _, row := range p.Rows {
			n := row.Node
			h.rawf(`<tr><th colspan="4" style="padding-left:%.1frem"><a href="/units/%s">%s</a></th></tr>`,
				0.6+float64(row.Depth)*1.5, url.PathEscape(n.ID), n.Name)
			for _, pos := range n.Positions {
				svc := "-"
				if pos.CurrentHolder != nil && pos.CurrentHolder.ServiceNumber != "" && !pos.IsVacant {
					svc = pos.CurrentHolder.ServiceNumber
				}
				h.rawf(`<tr><td style="padding-left:%.1frem">%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
					1.6+float64(row.Depth)*1.5, positionLabel(pos), pos.RoleName(), holderLabel(pos), svc)
			}
		}
		h.raw(`</tbody></table>`)

		if len(p.Unmatched) > 0 {
			h.rawf(`<h2>Unassigned positions (%d)</h2><p class="muted">These reference units that do not exist.</p><ul>`, len(p.Unmatched))
			for _, pos := range p.Unmatched {
				h.rawf(`<li>%s <span class="muted">unit %s</span></li>`, positionLabel(pos), pos.UnitID)
			}
			h.raw(`</ul>`)
		}
	}))
}

// SlotRow pairs a recruitment slot with its unit
type SlotRow struct {
	Unit *model.UnitNode
	Slot model.RecruitmentSlot
}

func Recruitment(rows []SlotRow) templ.Component {
	return Layout("Recruitment", component(func(_ context.Context, h *html) {
		h.raw(`<h1>Recruitment slots</h1>`)
		if len(rows) == 0 {
			h.raw(`<p class="muted">No recruitment slots.</p>`)
			return
		}
		h.raw(`<table><thead><tr><th>Unit</th><th>Role</th><th>Track</th><th>Total</th><th>Filled</th><th>Reserved</th><th>Available</th></tr></thead><tbody>`)
		for _, r := range rows {
			s := r.Slot
			role := "-"
			if s.Role != nil && s.Role.Name != "" {
				role = s.Role.Name
			}
			avail := `<td>` + itoa(s.Available()) + `</td>`
			if s.Overcommitted() {
				avail = `<td class="over" title="Overcommitted">` + itoa(s.Available()) + `</td>`
			}
			h.rawf(`<tr><td><a href="/units/%s">%s</a></td><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td>`,
				url.PathEscape(r.Unit.ID), r.Unit.DisplayAbbreviation(), role, s.CareerTrack, s.TotalSlots, s.FilledSlots, s.ReservedSlots)
			h.raw(avail)
			if !s.IsActive {
				h.raw(`<td class="muted">inactive</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
	}))
}
