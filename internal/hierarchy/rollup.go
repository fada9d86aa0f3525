package hierarchy

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/jjenkins/orgadmin/internal/model"
	"github.com/shopspring/decimal"
)

// Staffing summarizes positions and recruitment slots for a unit
type Staffing struct {
	UnitID         string `json:"unit_id"`
	Positions      int    `json:"positions"`
	Vacant         int    `json:"vacant"`
	Filled         int    `json:"filled"`
	SlotsTotal     int    `json:"slots_total"`
	SlotsFilled    int    `json:"slots_filled"`
	SlotsReserved  int    `json:"slots_reserved"`
	SlotsAvailable int    `json:"slots_available"`
	Overcommitted  int    `json:"overcommitted"`
}

// FillRate returns the share of filled positions as a percentage rounded to
// one decimal place
func (s Staffing) FillRate() decimal.Decimal {
	if s.Positions == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Filled)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.Positions))).
		Round(1)
}

// Checksum returns an MD5 digest of the counters for change detection
func (s Staffing) Checksum() string {
	input := fmt.Sprintf("%d:%d:%d:%d:%d:%d:%d",
		s.Positions, s.Vacant, s.Filled,
		s.SlotsTotal, s.SlotsFilled, s.SlotsReserved, s.SlotsAvailable)
	hash := md5.Sum([]byte(input))
	return hex.EncodeToString(hash[:])
}

func (s *Staffing) add(o Staffing) {
	s.Positions += o.Positions
	s.Vacant += o.Vacant
	s.Filled += o.Filled
	s.SlotsTotal += o.SlotsTotal
	s.SlotsFilled += o.SlotsFilled
	s.SlotsReserved += o.SlotsReserved
	s.SlotsAvailable += o.SlotsAvailable
	s.Overcommitted += o.Overcommitted
}

// Direct returns the staffing of a single node, excluding descendants
func Direct(n *model.UnitNode) Staffing {
	s := Staffing{UnitID: n.ID, Positions: len(n.Positions)}
	for _, p := range n.Positions {
		if p.IsVacant {
			s.Vacant++
		} else {
			s.Filled++
		}
	}
	for _, slot := range n.Slots {
		if !slot.IsActive {
			continue
		}
		s.SlotsTotal += slot.TotalSlots
		s.SlotsFilled += slot.FilledSlots
		s.SlotsReserved += slot.ReservedSlots
		s.SlotsAvailable += slot.AvailableFloor()
		if slot.Overcommitted() {
			s.Overcommitted++
		}
	}
	return s
}

// Rollup computes staffing for every unit including all of its descendants.
// Parents are summed bottom-up from their children.
func Rollup(roots []*model.UnitNode) map[string]Staffing {
	out := make(map[string]Staffing)
	var visit func(n *model.UnitNode) Staffing
	visit = func(n *model.UnitNode) Staffing {
		total := Direct(n)
		for _, child := range n.Children {
			total.add(visit(child))
		}
		out[n.ID] = total
		return total
	}
	for _, root := range roots {
		visit(root)
	}
	return out
}
