package templates

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/jjenkins/orgadmin/internal/hierarchy"
	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/jjenkins/orgadmin/internal/view"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

// UnitsProps is the data for the collapsible unit tree
type UnitsProps struct {
	Rows        []hierarchy.Row
	Staffing    map[string]hierarchy.Staffing
	Total       int
	Query       string
	Mode        view.Mode
	ModeUnit    *model.UnitNode
	ModePos     *model.PositionRecord
	MoveTargets []hierarchy.Row
	Diagnostics hierarchy.Diagnostics
	Flash       string
}

func Units(p UnitsProps) templ.Component {
	return Layout("Units", UnitsBody(p))
}

// UnitsBody renders the tree without the page chrome, for htmx swaps
func UnitsBody(p UnitsProps) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<div id="units">`)
		h.rawf(`<h1>Units <span class="muted">(%d)</span></h1>`, p.Total)

		if p.Flash != "" {
			h.rawf(`<div class="warn">%s</div>`, p.Flash)
		}
		if !p.Diagnostics.Empty() {
			h.rawf(`<div class="warn">%d orphaned, %d duplicate and %d cyclic unit records were placed at the top level.</div>`,
				len(p.Diagnostics.Orphans), len(p.Diagnostics.Duplicates), len(p.Diagnostics.CycleBreaks))
		}

		h.render(ctx, modeOverlay(p))

		h.raw(`<form method="get" action="/units" style="margin-bottom:1rem">`)
		h.rawf(`<input type="search" name="q" value="%s" placeholder="Search units">`, p.Query)
		h.raw(` <button type="submit">Search</button>`)
		h.raw(` <a href="/units/expand-all">Expand all</a> · <a href="/units/collapse-all">Collapse all</a>`)
		h.raw(` · <a href="/export/positions.csv">CSV</a> · <a href="/export/positions.xlsx">Excel</a></form>`)

		if len(p.Rows) == 0 {
			h.raw(`<p class="muted">No units match.</p></div>`)
			return
		}

		h.raw(`<table><thead><tr><th>Unit</th><th>Branch</th><th>Positions</th><th>Vacant</th><th>Open slots</th><th></th></tr></thead><tbody>`)
		for _, row := range p.Rows {
			unitRow(h, row, p.Staffing[row.Node.ID], p.Query)
		}
		h.raw(`</tbody></table></div>`)
	})
}

func unitRow(h *html, row hierarchy.Row, s hierarchy.Staffing, query string) {
	n := row.Node
	h.rawf(`<tr class="tree-row" id="unit-%s"><td style="padding-left:%.1frem">`, n.ID, 0.6+float64(row.Depth)*1.5)
	switch {
	case !row.HasChildren:
		h.raw(`<span class="muted">·</span> `)
	case row.Expanded:
		h.rawf(`<a href="/units/toggle/%s%s" title="Collapse">▾</a> `, url.PathEscape(n.ID), queryParam(query))
	default:
		h.rawf(`<a href="/units/toggle/%s%s" title="Expand">▸</a> `, url.PathEscape(n.ID), queryParam(query))
	}
	h.rawf(`<a href="/units/%s">%s</a>`, url.PathEscape(n.ID), n.Name)
	if n.Abbreviation != "" {
		h.rawf(` <span class="muted">%s</span>`, n.Abbreviation)
	}
	if !n.IsActive {
		h.raw(` <span class="muted">(inactive)</span>`)
	}
	h.rawf(`</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>`, n.BranchName(), s.Positions, s.Vacant, s.SlotsAvailable)
	modeLinks(h, n.ID)
	h.raw(`</td></tr>`)
}

func queryParam(q string) string {
	if q == "" {
		return ""
	}
	return "?q=" + url.QueryEscape(q)
}

func modeLinks(h *html, unitID string) {
	id := url.QueryEscape(unitID)
	for _, m := range []struct {
		kind  view.ModeKind
		label string
	}{
		{view.KindEditUnit, "Edit"},
		{view.KindAssignCommander, "Commander"},
		{view.KindMoveUnit, "Move"},
		{view.KindCreatePosition, "Add position"},
	} {
		h.rawf(`<a href="/units?mode=%s&unit=%s" class="muted" style="margin-right:.5rem">%s</a>`, string(m.kind), id, m.label)
	}
}

// modeOverlay renders the form for the active mode, if any
func modeOverlay(p UnitsProps) templ.Component {
	return component(func(_ context.Context, h *html) {
		if p.Mode == nil || p.Mode.Kind() == view.KindNone {
			return
		}
		if p.ModeUnit == nil && p.ModePos == nil {
			return
		}

		h.raw(`<div class="overlay"><form method="post" action="/units/commands">`)
		h.rawf(`<input type="hidden" name="mode" value="%s">`, string(p.Mode.Kind()))

		switch m := p.Mode.(type) {
		case view.EditUnit:
			u := p.ModeUnit
			h.rawf(`<h2>Edit %s</h2><input type="hidden" name="unit_id" value="%s">`, u.Name, m.UnitID)
			field(h, "Name", "name", u.Name)
			field(h, "Abbreviation", "abbreviation", u.Abbreviation)
			field(h, "Motto", "motto", u.Motto)
			field(h, "Location", "location", u.Location)
		case view.AssignCommander:
			h.rawf(`<h2>Assign commander of %s</h2><input type="hidden" name="unit_id" value="%s">`, p.ModeUnit.Name, m.UnitID)
			field(h, "User ID", "user_id", p.ModeUnit.CommanderID)
		case view.MoveUnit:
			h.rawf(`<h2>Move %s</h2><input type="hidden" name="unit_id" value="%s">`, p.ModeUnit.Name, m.UnitID)
			h.raw(`<label>New parent <select name="new_parent_id"><option value="">(top level)</option>`)
			for _, row := range p.MoveTargets {
				h.rawf(`<option value="%s">%s%s</option>`, row.Node.ID, strings.Repeat("- ", row.Depth), row.Node.Name)
			}
			h.raw(`</select></label>`)
		case view.CreatePosition:
			h.rawf(`<h2>New position in %s</h2><input type="hidden" name="unit_id" value="%s">`, p.ModeUnit.Name, m.UnitID)
			field(h, "Display title", "display_title", "")
			field(h, "Role ID", "role_id", "")
			field(h, "Identifier", "identifier", "")
		case view.AssignHolder:
			h.rawf(`<h2>Assign %s</h2><input type="hidden" name="position_id" value="%s">`, positionLabel(*p.ModePos), m.PositionID)
			field(h, "User ID", "user_id", "")
		}

		h.raw(`<p><button type="submit">Save</button> <a href="/units">Cancel</a></p></form></div>`)
	})
}

func field(h *html, label, name, value string) {
	h.rawf(`<p><label>%s <input name="%s" value="%s"></label></p>`, label, name, value)
}

func positionLabel(p model.PositionRecord) string {
	switch {
	case p.DisplayTitle != "":
		return p.DisplayTitle
	case p.Title != "":
		return p.Title
	default:
		return p.ID
	}
}

func holderLabel(p model.PositionRecord) string {
	if p.IsVacant {
		return "VACANT"
	}
	if p.CurrentHolder == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(p.CurrentHolder.Rank + " " + p.CurrentHolder.Username)
	if name == "" {
		return "Unknown"
	}
	return name
}
