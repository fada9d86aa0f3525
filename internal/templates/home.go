package templates

import (
	"context"

	"github.com/a-h/templ"
)

// HomeMetrics holds dashboard figures
type HomeMetrics struct {
	HasData         bool
	TotalUnits      int
	TotalPositions  int
	VacantPositions int
	VacancyRate     string
	OpenSlots       int
	TotalMembers    int
	LargestUnit     string
	Orphans         int
	Duplicates      int
	CycleBreaks     int
}

func Home(m HomeMetrics) templ.Component {
	return Layout("Dashboard", component(func(_ context.Context, h *html) {
		h.raw(`<h1>Organization overview</h1>`)
		if !m.HasData {
			h.raw(`<p class="muted">No units loaded yet. Run <code>orgadmin import</code> to sync from the API.</p>`)
			return
		}

		h.raw(`<div class="cards">`)
		card(h, "Units", itoa(m.TotalUnits))
		card(h, "Positions", itoa(m.TotalPositions))
		card(h, "Vacant", itoa(m.VacantPositions))
		card(h, "Vacancy rate", m.VacancyRate+"%")
		card(h, "Open slots", itoa(m.OpenSlots))
		card(h, "Members", itoa(m.TotalMembers))
		if m.LargestUnit != "" {
			card(h, "Largest unit", m.LargestUnit)
		}
		h.raw(`</div>`)

		if m.Orphans+m.Duplicates+m.CycleBreaks > 0 {
			h.rawf(`<div class="warn" style="margin-top:1rem">Data issues: %d orphaned, %d duplicate and %d cyclic unit records. `,
				m.Orphans, m.Duplicates, m.CycleBreaks)
			h.raw(`See <a href="/api/hierarchy">/api/hierarchy</a> for details.</div>`)
		}
	}))
}

func card(h *html, label, value string) {
	h.rawf(`<div class="card"><div class="muted">%s</div><div style="font-size:1.6rem">%s</div></div>`, label, value)
}
