package model

// RecruitmentSlot is a staffing target for a (unit, role, career track) tuple
type RecruitmentSlot struct {
	ID            string   `json:"id"`
	UnitID        string   `json:"unit_id"`
	Role          *RoleRef `json:"role,omitempty"`
	CareerTrack   string   `json:"career_track,omitempty"`
	TotalSlots    int      `json:"total_slots"`
	FilledSlots   int      `json:"filled_slots"`
	ReservedSlots int      `json:"reserved_slots"`
	IsActive      bool     `json:"is_active"`
}

// Available returns total - filled - reserved. The result is negative when
// the slot is overcommitted.
func (s RecruitmentSlot) Available() int {
	return s.TotalSlots - s.FilledSlots - s.ReservedSlots
}

// AvailableFloor returns Available floored at zero
func (s RecruitmentSlot) AvailableFloor() int {
	if a := s.Available(); a > 0 {
		return a
	}
	return 0
}

// Overcommitted reports whether filled and reserved exceed the total
func (s RecruitmentSlot) Overcommitted() bool {
	return s.Available() < 0
}
